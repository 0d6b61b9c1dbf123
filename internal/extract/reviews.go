package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/placelens/placelens/internal/report"
)

// Selectors for the visitor review list as rendered on pcmap pages. The
// pui__ class names are generated and have shifted before; keeping them in
// one place eases the next migration.
const (
	reviewItemSelector    = "li.place_apply_pui.EjjAW"
	reviewNickSelector    = "div.pui__JiVbY3 > span.pui__uslU0d"
	reviewContentSelector = "div.pui__vn15t2 > a"
	reviewMetaSelector    = "div.pui__QKE5Pr > span.pui__gfuUIT"
)

// Reviews parses the ordered visitor reviews out of a rendered review page.
// Items with missing sub-elements produce empty fields rather than errors;
// an empty document yields an empty slice and no error — the caller decides
// whether that is a failure.
func Reviews(html string) ([]report.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse review document: %w", err)
	}

	var reviews []report.Review
	doc.Find(reviewItemSelector).Each(func(_ int, item *goquery.Selection) {
		meta := item.Find(reviewMetaSelector)
		rv := report.Review{
			Nickname: strings.TrimSpace(item.Find(reviewNickSelector).First().Text()),
			Content:  strings.TrimSpace(item.Find(reviewContentSelector).First().Text()),
			Date:     strings.TrimSpace(meta.First().Find("time").First().Text()),
		}
		if meta.Length() > 1 {
			rv.Revisit = strings.TrimSpace(meta.Eq(1).Text())
		}
		reviews = append(reviews, rv)
	})
	return reviews, nil
}
