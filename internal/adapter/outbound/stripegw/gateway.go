// Package stripegw is the Stripe implementation of the payment gateway port.
package stripegw

import (
	"context"
	"errors"
	"net/http"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// idempotencyMetadataKey tags each refund with the key it was created under so a
// later attempt can find it after Stripe's own idempotency window has passed.
const idempotencyMetadataKey = "idempotency_key"

// Config configures the Stripe gateway.
type Config struct {
	SecretKey string
	// BaseURL overrides the API endpoint, e.g. for stripe-mock.
	BaseURL string
}

// gateway implements outbound.PaymentGatewayPort.
type gateway struct {
	api *client.API
}

// NewGateway creates a Stripe payment gateway. The SDK's own network retries are
// disabled, the refund coordinator owns retrying.
func NewGateway(cfg Config, httpClient *http.Client) outbound.PaymentGatewayPort {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	api := client.New(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})
	return &gateway{api: api}
}

func (g *gateway) Name() string {
	return "stripe"
}

func (g *gateway) CreateRefund(ctx context.Context, req *model.GatewayRefundRequest) (*model.GatewayRefund, error) {
	existing, err := g.findByKey(ctx, req)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Amount != req.Amount {
			return nil, outbound.ClassifyStatus(http.StatusBadRequest, "idempotency_error",
				"a refund with this idempotency key exists for a different amount")
		}
		return existing, nil
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentReference),
		Amount:        stripe.Int64(req.Amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata(idempotencyMetadataKey, req.IdempotencyKey)

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return toGatewayRefund(r, req), nil
}

// findByKey returns the refund already created under req's idempotency key, or nil.
func (g *gateway) findByKey(ctx context.Context, req *model.GatewayRefundRequest) (*model.GatewayRefund, error) {
	params := &stripe.RefundListParams{
		PaymentIntent: stripe.String(req.PaymentReference),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	iter := g.api.Refunds.List(params)
	for iter.Next() {
		r := iter.Refund()
		if r.Metadata[idempotencyMetadataKey] == req.IdempotencyKey {
			return toGatewayRefund(r, req), nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, classify(err)
	}
	return nil, nil
}

func toGatewayRefund(r *stripe.Refund, req *model.GatewayRefundRequest) *model.GatewayRefund {
	status := model.GatewayRefundStatus(r.Status)
	if r.Status == stripe.RefundStatusRequiresAction {
		status = model.GatewayRefundPending
	}
	return &model.GatewayRefund{
		ID:               r.ID,
		PaymentReference: req.PaymentReference,
		Amount:           r.Amount,
		Status:           status,
		IdempotencyKey:   req.IdempotencyKey,
	}
}

// classify maps Stripe SDK errors onto gateway errors. Context errors pass through
// unchanged so callers can tell a timeout from a gateway answer.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := string(stripeErr.Code)
		if code == "" {
			code = string(stripeErr.Type)
		}
		return outbound.ClassifyStatus(stripeErr.HTTPStatusCode, code, stripeErr.Msg)
	}

	// Transport failures carry no status and are retried.
	return outbound.ClassifyStatus(0, "network_error", err.Error())
}

// Compile-time check
var _ outbound.PaymentGatewayPort = (*gateway)(nil)
