package market

import (
	"fmt"
	"strings"
)

// Pair is an unordered pair of distinct symbols. A and B keep the order in
// which the screener enumerated them: A is the regressor, B the regressand.
type Pair struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

func NewPair(a, b string) (Pair, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return Pair{}, fmt.Errorf("market: pair needs two symbols (got %q, %q)", a, b)
	}
	if a == b {
		return Pair{}, fmt.Errorf("market: pair symbols must differ (got %q twice)", a)
	}
	return Pair{A: a, B: b}, nil
}

// ParsePair accepts "A/B", "A,B" or "A-B".
func ParsePair(s string) (Pair, error) {
	for _, sep := range []string{"/", ",", "-"} {
		if parts := strings.Split(s, sep); len(parts) == 2 {
			return NewPair(parts[0], parts[1])
		}
	}
	return Pair{}, fmt.Errorf("market: cannot parse pair %q (want A/B)", s)
}

func (p Pair) String() string {
	return p.A + "/" + p.B
}

// Key is order-independent, so {A,B} and {B,A} share a key.
func (p Pair) Key() string {
	if p.B < p.A {
		return p.B + "/" + p.A
	}
	return p.A + "/" + p.B
}
