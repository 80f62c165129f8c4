package ingress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/cfg"
	"tradeflow/internal/scheduler"
)

type fakeEnqueuer struct {
	full    bool
	signals []scheduler.Signal
}

func (f *fakeEnqueuer) Enqueue(sig scheduler.Signal) bool {
	if f.full {
		return false
	}
	f.signals = append(f.signals, sig)
	return true
}

type fakeConfigSource struct {
	pairs map[string]bool
}

func (f fakeConfigSource) PairConfigFor(symbol string) (cfg.PairConfig, bool) {
	if !f.pairs[symbol] {
		return cfg.PairConfig{}, false
	}
	return cfg.PairConfig{Symbol: symbol, IsEnabled: true}, true
}

func postWebhook(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestWebhookAcceptsJSONAlert(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"BTCUSDT": true}})

	rec := postWebhook(t, h, `{"symbol":"btcusdt","signal":"LONG"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.signals, 1)
	assert.Equal(t, "BTCUSDT", enq.signals[0].Symbol)
	assert.Equal(t, "LONG", enq.signals[0].Payload["signal"])
}

func TestWebhookNormalizesBuySellSynonyms(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"ETHUSDT": true}})

	rec := postWebhook(t, h, `{"ticker":"ETHUSDT","action":"BUY"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.signals, 1)
	assert.Equal(t, "LONG", enq.signals[0].Payload["signal"])
}

func TestWebhookFreeTextExchangePrefix(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"BTCUSDT": true}})

	rec := postWebhook(t, h, "BINANCE:BTCUSDT LONG signal fired")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.signals, 1)
	assert.Equal(t, "BTCUSDT", enq.signals[0].Symbol)
	assert.Equal(t, "LONG", enq.signals[0].Payload["signal"])
}

func TestWebhookFreeTextSpanishTPAlcista(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"BTCUSDT": true}})

	rec := postWebhook(t, h, "TP ALCISTA PARA BTCUSDT A 50000")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.signals, 1)
	assert.Equal(t, "BTCUSDT", enq.signals[0].Symbol)
	assert.Equal(t, "BUY_TP", enq.signals[0].Payload["signal"])
}

func TestWebhookRejectsUnparseableBody(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{})

	rec := postWebhook(t, h, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, enq.signals)
}

func TestWebhookRejectsUnrecognizedSignal(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"BTCUSDT": true}})

	rec := postWebhook(t, h, `{"symbol":"BTCUSDT","signal":"HODL"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, enq.signals)
}

func TestWebhookReturns429OnQueueFull(t *testing.T) {
	enq := &fakeEnqueuer{full: true}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"BTCUSDT": true}})

	rec := postWebhook(t, h, `{"symbol":"BTCUSDT","signal":"LONG"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestWebhookNormalizesPerpSuffixAgainstConfigView(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := New(enq, fakeConfigSource{pairs: map[string]bool{"BTCUSDT": true}})

	rec := postWebhook(t, h, `{"symbol":"BTCUSDT.P","signal":"LONG"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, enq.signals, 1)
	assert.Equal(t, "BTCUSDT", enq.signals[0].Symbol)
}

func TestHealthEndpoint(t *testing.T) {
	h := New(&fakeEnqueuer{}, fakeConfigSource{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
