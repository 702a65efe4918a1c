//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/emberwick/storefront/internal/infra/config"
	"github.com/google/wire"
)

// InitializeApp creates the application with all dependencies wired.
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}
