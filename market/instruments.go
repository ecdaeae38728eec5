// market/instruments.go
package market

import "strings"

// Blacklist excludes instruments whose symbol contains any of its entries
// as a substring, e.g. "BUSD" drops both "BUSDUSDT" and "ETHBUSD".
type Blacklist []string

// DefaultBlacklist holds the low volume tickers excluded from screening.
var DefaultBlacklist = Blacklist{
	"BUSD", "AUCTION", "STMX", "BAND", "TOMO", "FLM", "SPELL", "JASMY",
	"RAYUSDT", "FLOW", "ROSE", "XEM", "OCEAN", "FILUSDT", "HOTUSDT",
	"SFPUSDT", "NKNUSDT",
}

func (bl Blacklist) Matches(symbol string) bool {
	for _, s := range bl {
		if s != "" && strings.Contains(symbol, s) {
			return true
		}
	}
	return false
}

// Filter returns the symbols not matched by bl, in their original order.
func (bl Blacklist) Filter(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !bl.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}
