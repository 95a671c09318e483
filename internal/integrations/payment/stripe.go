package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe шлюз на Stripe PaymentIntents
// PaymentIntent создаётся и подтверждается одним запросом, ключ идемпотентности передаётся в Stripe
type Stripe struct {
	api *client.API
}

// NewStripe создает шлюз с секретным ключом Stripe
func NewStripe(secretKey string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api}
}

// Charge создаёт и подтверждает PaymentIntent
func (s *Stripe) Charge(ctx context.Context, charge Charge) (*Verdict, error) {
	if err := validateCharge(charge); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(charge.Amount),
		Currency:      stripe.String(charge.Currency),
		PaymentMethod: stripe.String(charge.PaymentMethod),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(charge.IdempotencyKey)
	params.AddMetadata("appointment_id", strconv.FormatInt(charge.AppointmentID, 10))

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			reason := string(stripeErr.DeclineCode)
			if reason == "" {
				reason = string(stripeErr.Code)
			}
			return &Verdict{Approved: false, DeclineReason: reason}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return &Verdict{Approved: false, Reference: pi.ID, DeclineReason: string(pi.Status)}, nil
	}

	return &Verdict{Approved: true, Reference: pi.ID}, nil
}
