package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// SimulationProvider fabricates checkout URLs locally so the whole flow can
// run offline and in tests.  The redirect encodes the intended outcome and
// the reservation correlation id; no external service is ever contacted.
type SimulationProvider struct {
	BaseURL string
	// now is swappable in tests so synthesized references are stable.
	now func() time.Time
}

// NewSimulationProvider builds a simulation provider rooted at the public
// base URL of this service.
func NewSimulationProvider(baseURL string) *SimulationProvider {
	return &SimulationProvider{BaseURL: baseURL, now: time.Now}
}

func (p *SimulationProvider) Name() string { return "simulation" }

// CreateSession returns a local redirect URL carrying the stored amount,
// the currency and the intended outcome.  Anything other than "decline" or
// "cancel" is treated as success.
func (p *SimulationProvider) CreateSession(_ context.Context, res *model.Reservation, outcome string) (*Session, error) {
	status := "success"
	if outcome == "decline" || outcome == "cancel" {
		status = "cancel"
	}
	v := url.Values{}
	v.Set(metaReservationID, res.ID)
	v.Set("amount", strconv.FormatInt(res.AmountCents, 10))
	v.Set("currency", res.Currency)
	v.Set("status", status)
	id := "sim_sess_" + res.ID
	return &Session{ID: id, URL: p.BaseURL + "/simulated-checkout?" + v.Encode()}, nil
}

// ResolveReturn accepts the simulated redirect parameters.  Only
// status=success confirms; a synthesized reference stands in for the
// processor's payment intent.
func (p *SimulationProvider) ResolveReturn(_ context.Context, params url.Values) (*ReturnConfirmation, error) {
	if params.Get("status") != "success" {
		return nil, ErrSessionIncomplete
	}
	id := params.Get(metaReservationID)
	if id == "" {
		return nil, ErrMissingCorrelation
	}
	ref := params.Get("payment_ref")
	if ref == "" {
		ref = fmt.Sprintf("sim_%d", p.now().UnixMilli())
	}
	return &ReturnConfirmation{ReservationID: id, PaymentRef: ref}, nil
}

// simulatedEvent mirrors the processor's webhook envelope closely enough
// that the same curl payloads work against both providers.
type simulatedEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			PaymentIntent string            `json:"payment_intent"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseNotification decodes a raw JSON event without signature checking.
// Unknown event types are ignored, not errors.
func (p *SimulationProvider) ParseNotification(payload []byte, _ string) (*Notification, error) {
	var ev simulatedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type != "checkout.session.completed" {
		return nil, nil
	}
	id := ev.Data.Object.Metadata[metaReservationID]
	if id == "" {
		return nil, ErrMissingCorrelation
	}
	ref := ev.Data.Object.PaymentIntent
	if ref == "" {
		ref = fmt.Sprintf("sim_%d", p.now().UnixMilli())
	}
	return &Notification{ReservationID: id, PaymentRef: ref}, nil
}
