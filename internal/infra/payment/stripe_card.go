package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripeのカード決済（Charges API）
type StripeCardProcessor struct {
	sc *client.API
	cb *gobreaker.CircuitBreaker[usecase.ChargeResult]
}

// apiURLが空ならStripe本番のURL
func NewStripeCardProcessor(secretKey string, apiURL string, bs BreakerSettings, logger *slog.Logger) *StripeCardProcessor {
	cfg := &stripe.BackendConfig{
		//リトライはしない
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}

	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})

	return &StripeCardProcessor{
		sc: sc,
		cb: newBreaker[usecase.ChargeResult]("stripe", bs, logger),
	}
}

func (p *StripeCardProcessor) Charge(ctx context.Context, req usecase.ChargeRequest) (usecase.ChargeResult, error) {
	return execute(p.cb, func() (usecase.ChargeResult, error) {
		return p.charge(ctx, req)
	})
}

func (p *StripeCardProcessor) charge(ctx context.Context, req usecase.ChargeRequest) (usecase.ChargeResult, error) {
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	if err := params.SetSource(req.Token); err != nil {
		return usecase.ChargeResult{}, model.NewPaymentError(model.ErrPaymentDeclined, "Invalid card token.")
	}

	ch, err := p.sc.Charges.New(params)
	if err != nil {
		return usecase.ChargeResult{}, classifyStripeError(ctx, err)
	}
	return usecase.ChargeResult{ID: ch.ID, Paid: ch.Paid}, nil
}

// card_error / invalid_request_error はカード側の問題として拒否扱い
func classifyStripeError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrPaymentTimeout, err)
	}

	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: stripe %d", model.ErrPaymentServiceUnavailable, se.HTTPStatusCode)
		case se.Type == stripe.ErrorTypeCard, se.Type == stripe.ErrorTypeInvalidRequest:
			return model.NewPaymentError(model.ErrPaymentDeclined, se.Msg)
		}
		return fmt.Errorf("%w: stripe %s", model.ErrPaymentServiceUnavailable, se.Type)
	}

	return fmt.Errorf("%w: %v", model.ErrPaymentServiceUnavailable, err)
}
