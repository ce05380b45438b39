package engine

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// runNamespace scopes run identities so they never collide with other name-based UUIDs.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rxtech-lab/argo-backtest/runs"))

// normalizeSymbols returns the sorted, de-duplicated symbol set of a request.
func normalizeSymbols(symbols []string) []string {
	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		normalized = append(normalized, strings.TrimSpace(symbol))
	}

	slices.Sort(normalized)

	return slices.Compact(normalized)
}

// RunID returns the identity of a run. Two requests with the same strategy fingerprint,
// date range, symbol set and capital share the same ID regardless of symbol order.
func RunID(fingerprint string, symbols []string, start, end time.Time, capital float64) string {
	key := strings.Join([]string{
		fingerprint,
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
		strings.Join(normalizeSymbols(symbols), ","),
		strconv.FormatFloat(capital, 'f', -1, 64),
	}, "|")

	return uuid.NewSHA1(runNamespace, []byte(key)).String()
}
