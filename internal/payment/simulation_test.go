package payment

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
)

func fixedProvider() *SimulationProvider {
	p := NewSimulationProvider("http://localhost:8080")
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return p
}

func TestCreateSession_EncodesStoredAmount(t *testing.T) {
	p := fixedProvider()
	res := &model.Reservation{ID: "res-1", AmountCents: 6000, Currency: "jpy"}

	sess, err := p.CreateSession(context.Background(), res, "")

	require.NoError(t, err)
	assert.Equal(t, "sim_sess_res-1", sess.ID)

	u, err := url.Parse(sess.URL)
	require.NoError(t, err)
	assert.Equal(t, "/simulated-checkout", u.Path)
	q := u.Query()
	assert.Equal(t, "res-1", q.Get("reservation_id"))
	assert.Equal(t, "6000", q.Get("amount"))
	assert.Equal(t, "jpy", q.Get("currency"))
	assert.Equal(t, "success", q.Get("status"))
}

func TestCreateSession_DeclineOutcome(t *testing.T) {
	p := fixedProvider()
	res := &model.Reservation{ID: "res-1", AmountCents: 100, Currency: "jpy"}

	for _, outcome := range []string{"decline", "cancel"} {
		sess, err := p.CreateSession(context.Background(), res, outcome)
		require.NoError(t, err)
		u, _ := url.Parse(sess.URL)
		assert.Equal(t, "cancel", u.Query().Get("status"))
	}
}

func TestResolveReturn_Success(t *testing.T) {
	p := fixedProvider()
	params := url.Values{}
	params.Set("status", "success")
	params.Set("reservation_id", "res-1")

	conf, err := p.ResolveReturn(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, "res-1", conf.ReservationID)
	assert.Equal(t, "sim_1700000000000", conf.PaymentRef)
}

func TestResolveReturn_ExplicitReferenceWins(t *testing.T) {
	p := fixedProvider()
	params := url.Values{}
	params.Set("status", "success")
	params.Set("reservation_id", "res-1")
	params.Set("payment_ref", "pi_known")

	conf, err := p.ResolveReturn(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, "pi_known", conf.PaymentRef)
}

func TestResolveReturn_Failures(t *testing.T) {
	p := fixedProvider()

	params := url.Values{}
	params.Set("status", "cancel")
	params.Set("reservation_id", "res-1")
	_, err := p.ResolveReturn(context.Background(), params)
	require.ErrorIs(t, err, ErrSessionIncomplete)

	params = url.Values{}
	params.Set("status", "success")
	_, err = p.ResolveReturn(context.Background(), params)
	require.ErrorIs(t, err, ErrMissingCorrelation)
}

func TestParseNotification(t *testing.T) {
	p := fixedProvider()

	payload := []byte(`{
        "type": "checkout.session.completed",
        "data": {"object": {"payment_intent": "pi_42",
            "metadata": {"reservation_id": "res-1"}}}
    }`)
	note, err := p.ParseNotification(payload, "")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, "res-1", note.ReservationID)
	assert.Equal(t, "pi_42", note.PaymentRef)
}

func TestParseNotification_IgnoresOtherEvents(t *testing.T) {
	p := fixedProvider()

	note, err := p.ParseNotification([]byte(`{"type": "invoice.paid"}`), "")
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestParseNotification_MissingCorrelation(t *testing.T) {
	p := fixedProvider()

	payload := []byte(`{"type": "checkout.session.completed", "data": {"object": {"payment_intent": "pi_1"}}}`)
	_, err := p.ParseNotification(payload, "")
	require.ErrorIs(t, err, ErrMissingCorrelation)
}

func TestParseNotification_BadJSON(t *testing.T) {
	p := fixedProvider()

	_, err := p.ParseNotification([]byte("{not json"), "")
	require.Error(t, err)
}
