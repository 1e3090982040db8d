package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// StripeProvider talks to the real processor.  The amount placed on a
// session always comes from the reservation row handed in by the caller;
// there is no code path that accepts a client-supplied amount.
type StripeProvider struct {
	webhookSecret string
	baseURL       string
}

// NewStripeProvider configures the global Stripe client key and returns a
// provider.  Both credentials are required; config.Load enforces that
// before this is ever called in live mode.
func NewStripeProvider(secretKey, webhookSecret, baseURL string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{webhookSecret: webhookSecret, baseURL: baseURL}
}

func (p *StripeProvider) Name() string { return "stripe" }

// CreateSession opens a Checkout Session for the reservation's stored
// amount.  The reservation id rides in session metadata so both the
// return-redirect and the asynchronous notification can correlate back
// without re-deriving anything from user input.
func (p *StripeProvider) CreateSession(ctx context.Context, res *model.Reservation, _ string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(res.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Reservation Fee"),
					},
					UnitAmount: stripe.Int64(res.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.baseURL + "/v1/checkout/confirm?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.baseURL + "/?status=cancel"),
	}
	params.Context = ctx
	params.AddMetadata(metaReservationID, res.ID)

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ResolveReturn retrieves the session named by the redirect and verifies
// with the processor that it is complete.  The redirect itself proves
// nothing; only the retrieved session state is trusted.
func (p *StripeProvider) ResolveReturn(ctx context.Context, params url.Values) (*ReturnConfirmation, error) {
	sessionID := params.Get("session_id")
	if sessionID == "" {
		return nil, ErrMissingCorrelation
	}
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	getParams.AddExpand("payment_intent")

	s, err := session.Get(sessionID, getParams)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve session: %w", err)
	}
	if s.Status != stripe.CheckoutSessionStatusComplete {
		return nil, ErrSessionIncomplete
	}
	id := s.Metadata[metaReservationID]
	if id == "" {
		return nil, ErrMissingCorrelation
	}
	ref := ""
	if s.PaymentIntent != nil {
		ref = s.PaymentIntent.ID
	}
	return &ReturnConfirmation{ReservationID: id, PaymentRef: ref}, nil
}

// ParseNotification verifies the webhook signature against the raw body
// and decodes completed-checkout events.  Verification is not optional
// here: an unsigned or tampered payload never reaches the resolver.
func (p *StripeProvider) ParseNotification(payload []byte, signature string) (*Notification, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if event.Type != "checkout.session.completed" {
		return nil, nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode session object: %w", err)
	}
	id := s.Metadata[metaReservationID]
	if id == "" {
		return nil, ErrMissingCorrelation
	}
	ref := ""
	if s.PaymentIntent != nil {
		ref = s.PaymentIntent.ID
	}
	return &Notification{ReservationID: id, PaymentRef: ref}, nil
}
