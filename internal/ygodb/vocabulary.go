package ygodb

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Vocabulary maps the search filter values of one locale to their labels.
type Vocabulary struct {
	Attribute   map[string]string
	MonsterType map[string]string
	Type        map[string]string
}

// ExtractVocabulary reads the card search form. Attributes and spell/trap
// effect kinds share a category.
func ExtractVocabulary(doc *goquery.Document) (Vocabulary, error) {
	attribute, err := filterLabels(doc, "#filter_attribute", "#filter_effect_set")
	if err != nil {
		return Vocabulary{}, err
	}
	monsterType, err := filterLabels(doc, "#filter_specis")
	if err != nil {
		return Vocabulary{}, err
	}
	types, err := filterLabels(doc, "#filter_other")
	if err != nil {
		return Vocabulary{}, err
	}
	return Vocabulary{
		Attribute:   attribute,
		MonsterType: monsterType,
		Type:        types,
	}, nil
}

func filterLabels(doc *goquery.Document, sections ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, section := range sections {
		filter := doc.Find(section).First()
		if filter.Length() == 0 {
			return nil, &ExtractError{
				Page:   "vocabulary",
				Reason: fmt.Sprintf("missing %s", section),
			}
		}
		filter.Find("li > span").Each(func(_ int, span *goquery.Selection) {
			key, ok := span.Find("input").First().Attr("value")
			if !ok {
				return
			}
			out[strings.TrimSpace(key)] = strings.TrimSpace(span.Text())
		})
	}
	return out, nil
}
