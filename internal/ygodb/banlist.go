package ygodb

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Severity int

const (
	Forbidden   Severity = 0
	Limited     Severity = 1
	SemiLimited Severity = 2
)

func (s Severity) String() string {
	switch s {
	case Forbidden:
		return "forbidden"
	case Limited:
		return "limited"
	case SemiLimited:
		return "semi-limited"
	}
	return "unknown"
}

// BanlistBuckets are the page sections of a banlist in severity order.
var BanlistBuckets = []struct {
	ID       string
	Severity Severity
}{
	{ID: "list_forbidden", Severity: Forbidden},
	{ID: "list_limited", Severity: Limited},
	{ID: "list_semi_limited", Severity: SemiLimited},
}

type Limitation struct {
	CardID   int64
	Severity Severity
}

// Banlist is the list effective from Date (YYYY-MM-DD) in Region.
type Banlist struct {
	Date        string
	Region      string
	Limitations []Limitation
}

// ExtractBanlistDates returns the effective dates offered by the date
// selector in ascending order.
func ExtractBanlistDates(doc *goquery.Document) []string {
	dates := []string{}
	doc.Find("#forbiddenLimitedDate option").Each(func(_ int, option *goquery.Selection) {
		value, _ := option.Attr("value")
		value = strings.TrimSpace(value)
		if value != "" {
			dates = append(dates, value)
		}
	})
	slices.Sort(dates)
	return slices.Compact(dates)
}

// BanlistPage is the content of one dated banlist page.
type BanlistPage struct {
	Limitations []Limitation
	// MissingBuckets names the sections the page did not have.
	MissingBuckets []string
	// Malformed counts entries without a card link.
	Malformed int
}

func ExtractBanlistPage(doc *goquery.Document) BanlistPage {
	page := BanlistPage{}
	for _, bucket := range BanlistBuckets {
		list := doc.Find("#" + bucket.ID).First()
		if list.Length() == 0 {
			page.MissingBuckets = append(page.MissingBuckets, bucket.ID)
			continue
		}
		list.Find("input.link_value").Each(func(_ int, input *goquery.Selection) {
			value, _ := input.Attr("value")
			id, ok := CardIDFromLink(value)
			if !ok {
				page.Malformed++
				return
			}
			page.Limitations = append(page.Limitations, Limitation{
				CardID:   id,
				Severity: bucket.Severity,
			})
		})
	}
	return page
}
