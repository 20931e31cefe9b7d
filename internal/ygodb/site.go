// Package ygodb turns pages of the official card database into flat records.
// Nothing in here does I/O, every extractor takes an already parsed document.
package ygodb

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultBaseUrl = "https://www.db.yugioh-card.com"

// FirstCardID is the lowest card id the database has ever assigned.
const FirstCardID int64 = 4007

// CanonicalLocale is the vocabulary every other locale is translated into.
const CanonicalLocale = "en"

// Locales lists every locale the database serves.
var Locales = []string{"en", "fr", "ja", "de", "ae", "cn", "es", "it", "ko", "pt"}

// PrimaryLocales decide whether a card exists at all. The canonical locale
// comes first so it writes the structural card row.
var PrimaryLocales = []string{"en", "ja"}

// BanlistScope pairs the locale a banlist page is read in with its region.
type BanlistScope struct {
	Locale string
	Region string
}

var BanlistScopes = []BanlistScope{
	{Locale: "ja", Region: "OCG"},
	{Locale: "en", Region: "TCG"},
}

// Site builds urls to the database.
type Site struct {
	BaseUrl string
}

func NewSite(baseUrl string) Site {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	return Site{BaseUrl: strings.TrimSuffix(baseUrl, "/")}
}

func (s Site) link(path string, query url.Values) string {
	return fmt.Sprintf("%s/yugiohdb/%s?%s", s.BaseUrl, path, query.Encode())
}

func (s Site) CardUrl(id int64, locale string) string {
	return s.link("card_search.action", url.Values{
		"ope":            {"2"},
		"cid":            {fmt.Sprint(id)},
		"request_locale": {locale},
	})
}

func (s Site) VocabularyUrl(locale string) string {
	return s.link("card_search.action", url.Values{
		"wname":          {"CardSearch"},
		"request_locale": {locale},
	})
}

func (s Site) SetListUrl(locale string) string {
	return s.link("card_list.action", url.Values{
		"wname":          {"CardSearch"},
		"request_locale": {locale},
	})
}

func (s Site) BanlistUrl(locale string) string {
	return s.link("forbidden_limited.action", url.Values{
		"request_locale": {locale},
	})
}

func (s Site) BanlistDateUrl(date, locale string) string {
	return s.link("forbidden_limited.action", url.Values{
		"forbiddenLimitedDate": {date},
		"request_locale":       {locale},
	})
}

// Localize resolves a link found on a page against the base url and forces
// its request_locale.
func (s Site) Localize(link, locale string) (string, error) {
	base, err := url.Parse(s.BaseUrl + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(ref)
	query := resolved.Query()
	query.Set("request_locale", locale)
	resolved.RawQuery = query.Encode()
	return resolved.String(), nil
}
