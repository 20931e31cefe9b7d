package ygodb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"superdb/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// SetLink is one entry of the product listing.
type SetLink struct {
	// ID is the product id, or "<locale>/<name>" when the link has none.
	ID     string
	Name   string
	Locale string
	Url    string
}

// ExtractSetLinks reads the product listing. Entries that cannot be read are
// reported through the returned error while the rest are still returned.
func ExtractSetLinks(doc *goquery.Document, site Site, locale string) ([]SetLink, error) {
	links := []SetLink{}
	var errs []error

	doc.Find("div.greater_than").Each(func(i int, marker *goquery.Selection) {
		entry := marker.Parent()
		name := htmlutil.CleanName(htmlutil.Text(entry.Find("p").First()))
		value, ok := entry.Find("input.link_value").First().Attr("value")
		if name == "" || !ok {
			errs = append(errs, &ExtractError{
				Page:   "set list",
				Reason: fmt.Sprintf("entry %d has no name or link", i),
			})
			return
		}

		link, err := site.Localize(value, locale)
		if err != nil {
			errs = append(errs, &ExtractError{
				Page:   "set list",
				Reason: fmt.Sprintf("entry %d: %s", i, err),
			})
			return
		}

		id := htmlutil.QueryParam(link, "pid")
		if id == "" {
			id = fmt.Sprintf("%s/%s", locale, name)
		}
		links = append(links, SetLink{
			ID:     id,
			Name:   name,
			Locale: locale,
			Url:    link,
		})
	})

	return links, errors.Join(errs...)
}

// SetPage is what a product detail page says about the product.
type SetPage struct {
	// ReleaseDate is YYYY-MM-DD or "" when the page has none or it could
	// not be parsed.
	ReleaseDate string
	// ReleaseDateText is the raw text the date was read from.
	ReleaseDateText string
	CardIDs         []int64
}

var releaseDateSelectors = []string{"#previewed", ".release_date", ".date_info", ".product_info"}

// ExtractSetPage reads a product detail page. Card ids are looked up by three
// strategies in order, the first that finds any wins:
//  1. input.link_value values
//  2. anchors linking to a card
//  3. data-cid attributes
func ExtractSetPage(doc *goquery.Document, locale string) (SetPage, error) {
	page := SetPage{}
	for _, selector := range releaseDateSelectors {
		element := doc.Find(selector).First()
		if element.Length() == 0 {
			continue
		}
		page.ReleaseDateText = htmlutil.Text(element)
		page.ReleaseDate, _ = ParseReleaseDate(locale, page.ReleaseDateText)
		break
	}

	strategies := []func(*goquery.Document) []int64{
		linkValueCardIDs,
		anchorCardIDs,
		dataCardIDs,
	}
	for _, strategy := range strategies {
		ids := strategy(doc)
		if len(ids) > 0 {
			page.CardIDs = ids
			return page, nil
		}
	}
	return page, &ExtractError{Page: "set", Reason: "no card ids found"}
}

type idCollector struct {
	seen map[int64]bool
	ids  []int64
}

func (c *idCollector) add(id int64) {
	if c.seen == nil {
		c.seen = map[int64]bool{}
	}
	if c.seen[id] {
		return
	}
	c.seen[id] = true
	c.ids = append(c.ids, id)
}

func linkValueCardIDs(doc *goquery.Document) []int64 {
	var out idCollector
	doc.Find("input.link_value").Each(func(_ int, input *goquery.Selection) {
		value, _ := input.Attr("value")
		if id, ok := CardIDFromLink(value); ok {
			out.add(id)
		}
	})
	return out.ids
}

func anchorCardIDs(doc *goquery.Document) []int64 {
	var out idCollector
	doc.Find(`a[href*="cid="]`).Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		if id, ok := CardIDFromLink(href); ok {
			out.add(id)
		}
	})
	return out.ids
}

func dataCardIDs(doc *goquery.Document) []int64 {
	var out idCollector
	doc.Find("[data-cid]").Each(func(_ int, element *goquery.Selection) {
		value, _ := element.Attr("data-cid")
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err == nil {
			out.add(id)
		}
	})
	return out.ids
}
