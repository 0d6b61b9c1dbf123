// Package extract derives structured values from raw place documents.
package extract

import (
	"fmt"
	"regexp"

	"github.com/placelens/placelens/internal/report"
)

// The place id is embedded in the search page's Apollo state blob rather
// than the DOM, so a pattern match beats a selector here.
var placeIDExpr = regexp.MustCompile(
	`RestaurantListSummary:[^"]+":\{"__typename":"RestaurantListSummary".+?"id":"(\d+)"`,
)

// PlaceID extracts the first place id from a rendered search page.
// A missing pattern is the expected outcome for ambiguous or unlisted
// queries and surfaces as report.ErrPlaceNotFound.
func PlaceID(html string) (string, error) {
	m := placeIDExpr.FindStringSubmatch(html)
	if m == nil {
		return "", fmt.Errorf("extract place id: %w", report.ErrPlaceNotFound)
	}
	return m[1], nil
}
