package catalog

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Currency is appended to formatted amounts.
const Currency = "FCFA"

// ParsePrice keeps the digits of a display price: "85.000 FCFA" is 85000.
// A price without digits is 0.
func ParsePrice(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatAmount groups thousands with dots: 255000 is "255.000".
func FormatAmount(n int64) string {
	return humanize.FormatInteger("#.###,", int(n))
}

// FormatPrice formats n as a display price, e.g. "255.000 FCFA".
func FormatPrice(n int64) string {
	return FormatAmount(n) + " " + Currency
}
