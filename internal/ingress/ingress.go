// Package ingress implements the single HTTP entry point external charting
// platforms post alerts to (spec.md §6): POST /webhook accepts either a JSON
// object or free text, normalizes it into a symbol and one of the four
// signal kinds, and hands it to the scheduler. GET /health is a liveness
// probe. Everything upstream of Enqueue — alert parsing nuance beyond the
// literal token rules spec.md §6 gives, and the operator GUI — is out of
// scope per spec.md §1; this package implements only what §6 specifies.
package ingress

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"tradeflow/internal/cfg"
	"tradeflow/internal/metrics"
	"tradeflow/internal/scheduler"
)

// Enqueuer is the scheduler surface ingress drives.
type Enqueuer interface {
	Enqueue(sig scheduler.Signal) bool
}

// ConfigSource resolves the pair-config view, used only to normalize a
// symbol's `.P` suffix against whichever form is actually configured
// (spec.md §4.6: "tolerant of a `.P` suffix if the base form is present in
// the view, or vice versa").
type ConfigSource interface {
	PairConfigFor(symbol string) (cfg.PairConfig, bool)
}

// Handler serves /webhook and /health.
type Handler struct {
	enq     Enqueuer
	cfgSrc  ConfigSource
	metrics metrics.IngressView
}

// New builds a Handler.
func New(enq Enqueuer, cfgSrc ConfigSource) *Handler {
	return &Handler{enq: enq, cfgSrc: cfgSrc}
}

// WithMetrics attaches a metric facade; calling it is optional, every
// recording call guards against a nil field.
func (h *Handler) WithMetrics(mv metrics.IngressView) *Handler {
	h.metrics = mv
	return h
}

// Router builds the mux.Router exposing /webhook and /health.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhook", h.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	return r
}

type acceptResponse struct {
	OK       bool   `json:"ok"`
	Enqueued bool   `json:"enqueued"`
	Symbol   string `json:"symbol"`
	Signal   string `json:"signal"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		if h.metrics.WebhookLatency != nil {
			h.metrics.WebhookLatency.Observe(time.Since(start).Seconds())
		}
	}()

	alert, err := parseAlert(r)
	if err != nil {
		h.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol := h.normalizeSymbol(alert.Symbol)
	kind, err := normalizeSignal(alert.Signal)
	if err != nil {
		h.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	sig := scheduler.Signal{
		Symbol:     symbol,
		Payload:    map[string]interface{}{"signal": string(kind)},
		ReceivedAt: time.Now(),
	}
	if !h.enq.Enqueue(sig) {
		log.Warn().Str("symbol", symbol).Msg("webhook: per-symbol queue full, rejecting")
		h.reject(w, http.StatusTooManyRequests, "queue full")
		return
	}

	if h.metrics.SignalsReceived != nil {
		h.metrics.SignalsReceived.Inc()
	}
	writeJSON(w, http.StatusOK, acceptResponse{OK: true, Enqueued: true, Symbol: symbol, Signal: string(kind)})
}

func (h *Handler) reject(w http.ResponseWriter, status int, reason string) {
	if h.metrics.SignalsRejected != nil {
		h.metrics.SignalsRejected.Inc()
	}
	writeJSON(w, status, errorResponse{OK: false, Error: reason})
}

// normalizeSymbol uppercases and, when the pair-config view carries only one
// of the `.P`/base forms, rewrites to whichever form is actually configured
// (spec.md §4.6).
func (h *Handler) normalizeSymbol(raw string) string {
	symbol := uppercaseSymbol(raw)
	if h.cfgSrc == nil {
		return symbol
	}
	if _, ok := h.cfgSrc.PairConfigFor(symbol); ok {
		return symbol
	}
	const perpSuffix = ".P"
	if hasSuffix(symbol, perpSuffix) {
		base := symbol[:len(symbol)-len(perpSuffix)]
		if _, ok := h.cfgSrc.PairConfigFor(base); ok {
			return base
		}
	} else {
		withSuffix := symbol + perpSuffix
		if _, ok := h.cfgSrc.PairConfigFor(withSuffix); ok {
			return withSuffix
		}
	}
	return symbol
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
