package util

import "strings"

// CanonicalSymbol upper-cases s and strips separators, so "btc-usdt",
// "BTC/USDT" and "BTCUSDT" all become "BTCUSDT".
func CanonicalSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
}

// SplitQuote splits a canonical symbol into base and quote using the
// first known quote suffix. ok is false when no suffix matches.
func SplitQuote(symbol string) (base, quote string, ok bool) {
	for _, q := range []string{"USDT", "USDC", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return strings.TrimSuffix(symbol, q), q, true
		}
	}
	return "", "", false
}
