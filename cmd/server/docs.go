// Package main Storefront API
//
//	@title						Storefront API
//	@version					1.0
//	@description				Order and return lifecycle API for the candle storefront.
//
//	@contact.name				Storefront Engineering
//
//	@license.name				Proprietary
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Orders
//	@tag.description			Order reads, status changes and cancellation
//
//	@tag.name					Returns
//	@tag.description			Customer return requests
//
//	@tag.name					Admin Returns
//	@tag.description			Return processing and refunds
package main
