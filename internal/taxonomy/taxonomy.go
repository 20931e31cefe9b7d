// Package taxonomy translates the free text vocabulary of card pages
// (attributes, monster types and types) into the canonical locale.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"superdb/internal/ygodb"
)

// Vocabulary is one locale's labels keyed by search filter value, plus the
// words that mark spell and trap cards.
type Vocabulary struct {
	Attribute   map[string]string `json:"attribute"`
	MonsterType map[string]string `json:"monster_type"`
	Type        map[string]string `json:"type"`
	Spell       string            `json:"Spell"`
	Trap        string            `json:"Trap"`
}

// Map holds the vocabulary of every locale.
type Map map[string]Vocabulary

// Locales returns the locales present in the map in sorted order.
func (m Map) Locales() []string {
	locales := make([]string, 0, len(m))
	for locale := range m {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

func Load(path string) (Map, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out Map
	err = json.Unmarshal(contents, &out)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// Save writes the map as indented json, replacing the file atomically.
func (m Map) Save(path string) error {
	contents, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Exists reports whether a translation file is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SpellWords are the words appended to a spell card's attribute per locale.
var SpellWords = map[string]string{
	"ja": "魔法",
	"ko": "마법",
	"ae": "Spell",
	"en": "Spell",
	"de": "Zauber",
	"fr": "Magie",
	"it": "Magia",
	"es": "Mágica",
	"pt": "Magia",
	"cn": "Spell",
}

// TrapWords are the words appended to a trap card's attribute per locale.
var TrapWords = map[string]string{
	"ja": "罠",
	"ko": "함정",
	"ae": "Trap",
	"en": "Trap",
	"de": "Fallen",
	"fr": "Piège",
	"it": "Trappola",
	"es": "Trampa",
	"pt": "Armadilha",
	"cn": "Trap",
}

// SpecialSummonKey is the type filter some locales do not list.
const SpecialSummonKey = "16"

// SpecialSummonLabels fill SpecialSummonKey when a locale's form lacks it.
var SpecialSummonLabels = map[string]string{
	"ja": "特殊召喚",
	"ko": "특수 소환",
	"ae": "Special summon",
	"en": "Special summon",
	"de": "Spezialbeschwörung",
	"fr": "Invocation Spéciale",
	"it": "Evocazione Speciale",
	"es": "Invocación Especial",
	"pt": "Invocação Especial",
	"cn": "特殊召唤",
}

// Override replaces a label the search form gets wrong.
type Override struct {
	Locale string
	Key    string
	Label  string
}

// TypeOverrides are applied after every locale has been scraped.
var TypeOverrides = []Override{
	{Locale: "it", Key: "5", Label: "Spirito"},
	{Locale: "pt", Key: "6", Label: "União"},
}

// FromPage completes a scraped vocabulary with the fixed words of its locale.
func FromPage(locale string, page ygodb.Vocabulary) Vocabulary {
	vocabulary := Vocabulary{
		Attribute:   cloneLabels(page.Attribute),
		MonsterType: cloneLabels(page.MonsterType),
		Type:        cloneLabels(page.Type),
		Spell:       SpellWords[locale],
		Trap:        TrapWords[locale],
	}
	if _, ok := vocabulary.Type[SpecialSummonKey]; !ok {
		if label, ok := SpecialSummonLabels[locale]; ok {
			vocabulary.Type[SpecialSummonKey] = label
		}
	}
	return vocabulary
}

func cloneLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return map[string]string{}
	}
	return maps.Clone(labels)
}

// ApplyOverrides fixes known bad labels of the locales present in the map.
func (m Map) ApplyOverrides() {
	for _, override := range TypeOverrides {
		vocabulary, ok := m[override.Locale]
		if !ok {
			continue
		}
		vocabulary.Type[override.Key] = override.Label
	}
}
