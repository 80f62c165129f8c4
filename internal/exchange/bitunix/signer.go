package bitunix

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// sign implements the wire signature from spec.md §6:
//
//	sha256( sha256(nonce ‖ timestamp ‖ apiKey ‖ sortedQueryString ‖ canonicalBody) ‖ apiSecret )
//
// sortedQueryString is the concatenation of "k v" pairs sorted by key with no
// separators; canonicalBody is compact JSON with sorted keys (already
// produced by the caller).
func sign(secret, nonce, ts, apiKey, sortedQueryString, canonicalBody string) string {
	h1 := sha256.Sum256([]byte(nonce + ts + apiKey + sortedQueryString + canonicalBody))
	h2 := sha256.Sum256([]byte(hex.EncodeToString(h1[:]) + secret))
	return hex.EncodeToString(h2[:])
}

// sortedQueryString builds the "k v" (no separators) digest input for a set
// of query parameters, sorted by key, per spec.md §6.
func sortedQueryString(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	return b.String()
}
