package ingress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"tradeflow/internal/executor"
)

// alert is the canonical form every incoming webhook body is reduced to,
// before symbol normalization against the pair-config view (spec.md §6).
type alert struct {
	Symbol string
	Signal string
}

// jsonAlert mirrors the accepted JSON field synonyms: `symbol`/`ticker` and
// `signal`/`action`/`side` (spec.md §6).
type jsonAlert struct {
	Symbol string `json:"symbol"`
	Ticker string `json:"ticker"`
	Signal string `json:"signal"`
	Action string `json:"action"`
	Side   string `json:"side"`
}

// parseAlert reads the request body and reduces it to an alert, trying a
// JSON object first and falling back to free-text inference (spec.md §6).
func parseAlert(r *http.Request) (alert, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return alert{}, fmt.Errorf("reading request body: %w", err)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return alert{}, fmt.Errorf("empty request body")
	}

	if trimmed[0] == '{' {
		var ja jsonAlert
		if err := json.Unmarshal(body, &ja); err == nil {
			symbol := firstNonEmpty(ja.Symbol, ja.Ticker)
			signal := firstNonEmpty(ja.Signal, ja.Action, ja.Side)
			if symbol != "" && signal != "" {
				return alert{Symbol: symbol, Signal: signal}, nil
			}
		}
	}

	return parseFreeText(trimmed)
}

var (
	exchangePrefixRe = regexp.MustCompile(`(?i)^[A-Z]+:([A-Z0-9.]+)`)
	bareSymbolRe     = regexp.MustCompile(`(?i)\b([A-Z0-9]{2,15}USDT(?:\.P)?)\b`)
	spanishParaEnRe  = regexp.MustCompile(`(?i)\b(?:PARA|EN)\s+([A-Z0-9.]+)\s+A\b`)
	dottedTokenRe    = regexp.MustCompile(`(?i)\b([A-Z0-9]{2,15}\.[A-Z0-9]{1,6})\b`)
)

// parseFreeText infers symbol and signal from an unstructured alert string,
// tolerating the literal formats spec.md §6 names: `EXCHANGE:SYMBOL`, a bare
// `XXXUSDT[.P]`, Spanish `PARA <SYM> A` / `EN <SYM> A`, or a dotted token.
func parseFreeText(text string) (alert, error) {
	upper := strings.ToUpper(text)

	signal, err := inferSignalFromText(upper)
	if err != nil {
		return alert{}, err
	}

	symbol := extractSymbol(upper)
	if symbol == "" {
		return alert{}, fmt.Errorf("could not extract a symbol from alert text")
	}

	return alert{Symbol: symbol, Signal: signal}, nil
}

func extractSymbol(upper string) string {
	if m := exchangePrefixRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	if m := spanishParaEnRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	if m := bareSymbolRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	if m := dottedTokenRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	return ""
}

// inferSignalFromText recognizes the literal tokens spec.md §6 names:
// LONG, SHORT, BUY TP/TP ALCISTA -> BUY_TP, SELL TP/TP BAJISTA -> SELL_TP.
func inferSignalFromText(upper string) (string, error) {
	switch {
	case strings.Contains(upper, "BUY TP"), strings.Contains(upper, "TP ALCISTA"):
		return string(executor.KindBuyTP), nil
	case strings.Contains(upper, "SELL TP"), strings.Contains(upper, "TP BAJISTA"):
		return string(executor.KindSellTP), nil
	case strings.Contains(upper, "LONG"):
		return string(executor.KindLong), nil
	case strings.Contains(upper, "SHORT"):
		return string(executor.KindShort), nil
	default:
		return "", fmt.Errorf("could not infer a signal from alert text")
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func uppercaseSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// normalizeSignal maps the canonical JSON-field signal synonyms
// (`BUY`->`LONG`, `SELL`->`SHORT`, otherwise literal) and validates the
// result against the closed signal-kind set (spec.md §3, §6).
func normalizeSignal(raw string) (executor.Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch upper {
	case "BUY":
		upper = string(executor.KindLong)
	case "SELL":
		upper = string(executor.KindShort)
	}
	switch executor.Kind(upper) {
	case executor.KindLong, executor.KindShort, executor.KindBuyTP, executor.KindSellTP:
		return executor.Kind(upper), nil
	default:
		return "", fmt.Errorf("unrecognized signal %q", raw)
	}
}
