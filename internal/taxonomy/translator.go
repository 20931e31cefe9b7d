package taxonomy

import (
	"fmt"
	"sort"
	"strings"
	"superdb/internal/telemetry"
	"superdb/internal/ygodb"

	"github.com/antzucaro/matchr"
)

const (
	report_translate = "translate"
)

type Category string

const (
	CategoryAttribute   Category = "attribute"
	CategoryMonsterType Category = "monster_type"
	CategoryType        Category = "type"
)

// suggestions below this Jaro-Winkler similarity are not worth printing
const suggestionThreshold = 0.85

// index is a vocabulary with reverse lookups from label to key.
type index struct {
	vocabulary Vocabulary
	keys       map[Category]map[string]string
}

func labels(vocabulary Vocabulary, category Category) map[string]string {
	switch category {
	case CategoryAttribute:
		return vocabulary.Attribute
	case CategoryMonsterType:
		return vocabulary.MonsterType
	case CategoryType:
		return vocabulary.Type
	}
	return nil
}

var categories = []Category{CategoryAttribute, CategoryMonsterType, CategoryType}

func newIndex(vocabulary Vocabulary) index {
	out := index{vocabulary: vocabulary, keys: map[Category]map[string]string{}}
	for _, category := range categories {
		byKey := labels(vocabulary, category)
		keys := make([]string, 0, len(byKey))
		for key := range byKey {
			keys = append(keys, key)
		}
		// the lowest key wins when two keys share a label
		sort.Strings(keys)

		byLabel := map[string]string{}
		for _, key := range keys {
			label := byKey[key]
			if _, taken := byLabel[label]; !taken {
				byLabel[label] = key
			}
		}
		out.keys[category] = byLabel
	}
	return out
}

// Translator rewrites card records into the canonical vocabulary. It is
// read only after construction and safe for concurrent use.
type Translator struct {
	canonical index
	locales   map[string]index
	tel       telemetry.API
}

func NewTranslator(m Map, tel telemetry.API) (*Translator, error) {
	canonical, ok := m[ygodb.CanonicalLocale]
	if !ok {
		return nil, fmt.Errorf("translations have no canonical locale %q", ygodb.CanonicalLocale)
	}
	t := &Translator{
		canonical: newIndex(canonical),
		locales:   map[string]index{},
		tel:       telemetry.NewScopedAPI("taxonomy", tel),
	}
	for locale, vocabulary := range m {
		t.locales[locale] = newIndex(vocabulary)
	}
	return t, nil
}

// Lookup translates one label of a category from a locale.
func (t *Translator) Lookup(locale string, category Category, label string) (string, bool) {
	source, ok := t.locales[locale]
	if !ok {
		return "", false
	}
	key, ok := source.keys[category][label]
	if !ok {
		return "", false
	}
	translated, ok := labels(t.canonical.vocabulary, category)[key]
	if !ok || translated == "" {
		return "", false
	}
	return translated, true
}

func (t *Translator) suggest(locale string, category Category, label string) string {
	best := ""
	bestScore := 0.0
	for candidate := range t.locales[locale].keys[category] {
		score := matchr.JaroWinkler(label, candidate, false)
		if score > bestScore || (score == bestScore && candidate < best) {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

func (t *Translator) warn(card ygodb.Card, category Category, label string) {
	params := []any{
		fmt.Errorf("no %s translation for %q", category, label),
		card.ID,
		card.Locale,
	}
	if suggestion := t.suggest(card.Locale, category, label); suggestion != "" {
		params = append(params, fmt.Sprintf("closest: %q", suggestion))
	}
	t.tel.ReportWarning(report_translate, params...)
}

// Translate returns a copy of the card with its attribute, monster type and
// types in the canonical vocabulary.
//
// An attribute or monster type without a translation is kept as-is, a type
// without one is dropped. Both are reported as warnings.
func (t *Translator) Translate(card ygodb.Card) ygodb.Card {
	source, ok := t.locales[card.Locale]
	if !ok {
		t.tel.ReportWarning(
			report_translate,
			fmt.Errorf("no translations for locale %q", card.Locale),
			card.ID,
		)
		return card
	}

	out := card
	out.Attribute = t.translateAttribute(card, source.vocabulary)

	if card.MonsterType != "" {
		translated, ok := t.Lookup(card.Locale, CategoryMonsterType, card.MonsterType)
		if ok {
			out.MonsterType = translated
		} else {
			t.warn(card, CategoryMonsterType, card.MonsterType)
		}
	}

	out.Types = make([]string, 0, len(card.Types))
	for _, label := range card.Types {
		translated, ok := t.Lookup(card.Locale, CategoryType, label)
		if !ok {
			t.warn(card, CategoryType, label)
			continue
		}
		out.Types = append(out.Types, translated)
	}
	return out
}

func (t *Translator) translateAttribute(card ygodb.Card, source Vocabulary) string {
	text := strings.TrimSpace(card.Attribute)
	canonical := t.canonical.vocabulary

	suffix := ""
	switch {
	case source.Spell != "" && strings.Contains(text, source.Spell):
		text = strings.TrimSpace(strings.Replace(text, source.Spell, "", 1))
		suffix = canonical.Spell
	case source.Trap != "" && strings.Contains(text, source.Trap):
		text = strings.TrimSpace(strings.Replace(text, source.Trap, "", 1))
		suffix = canonical.Trap
	}

	// a normal spell or trap has nothing besides the suffix
	if text == "" {
		return suffix
	}

	translated, ok := t.Lookup(card.Locale, CategoryAttribute, text)
	if !ok {
		t.warn(card, CategoryAttribute, text)
		return card.Attribute
	}
	if suffix != "" {
		return fmt.Sprintf("%s %s", translated, suffix)
	}
	return translated
}
