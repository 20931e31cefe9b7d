package ygodb

import (
	"regexp"
	"strconv"
	"strings"
	"superdb/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Card is one locale's view of a card page.
type Card struct {
	ID     int64
	Locale string

	Name           string
	CardText       string
	PendulumEffect string

	// Attribute is the first value box. For spells and traps it carries
	// the Spell/Trap suffix, for example "Continuous Spell".
	Attribute string
	// MonsterType is "" for cards without one.
	MonsterType string
	Types       []string

	LevelRankArrows *int64
	Atk             *int64
	Def             *int64
	PendulumScale   *int64

	Editions []Edition
}

// Edition is one printing of a card listed on its page.
type Edition struct {
	SetID           string
	CardNumber      string
	RarityNames     []string
	RarityLongNames []string
}

const speciesSeparator = "／"

// ExtractCard reads a card detail page. ID and Locale are left for the
// caller to fill in. ErrNoData is returned when the page has no card.
func ExtractCard(doc *goquery.Document) (Card, error) {
	cardElement := doc.Find("#CardSet").First()
	if cardElement.Length() == 0 {
		return Card{}, ErrNoData
	}

	// the reading is a .ruby span inside the heading
	name := htmlutil.OwnText(cardElement.Find("#cardname h1"))
	if name == "" {
		return Card{}, &ExtractError{Page: "card", Reason: "missing card name"}
	}

	card := Card{
		Name:           name,
		CardText:       extractCardText(doc),
		PendulumEffect: htmlutil.Text(cardElement.Find(".pen_effect > .item_box_text")),
	}

	itemBoxes := doc.Find(".item_box_value")
	card.Attribute = htmlutil.Text(itemBoxes.Eq(0))
	if level := itemBoxes.Eq(1); level.Length() > 0 {
		linkIcon := level.Find(".icon_img_set")
		if linkIcon.Length() > 0 {
			card.LevelRankArrows = linkArrows(linkIcon.First())
		} else {
			card.LevelRankArrows = number(level)
		}
	}
	card.Atk = number(itemBoxes.Eq(2))
	card.Def = number(itemBoxes.Eq(3))
	card.PendulumScale = number(itemBoxes.Eq(4))

	species := []string{}
	for _, text := range htmlutil.Texts(cardElement.Find(".species span")) {
		if text == speciesSeparator || text == "/" {
			continue
		}
		for _, part := range strings.Split(text, speciesSeparator) {
			part = strings.TrimSpace(part)
			if part != "" {
				species = append(species, part)
			}
		}
	}
	if len(species) > 0 {
		card.MonsterType = species[0]
		species = species[1:]
	}
	card.Types = species
	card.Editions = ExtractEditions(doc)

	return card, nil
}

// the first two child nodes are whitespace and the section title, line
// breaks are <br> elements between text nodes
func extractCardText(doc *goquery.Document) string {
	contents := doc.Find(".CardText > .item_box_text").First().Contents()
	if contents.Length() <= 2 {
		return ""
	}
	lines := []string{}
	contents.Slice(2, goquery.ToEnd).Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "br" {
			return
		}
		lines = append(lines, strings.TrimSpace(node.Text()))
	})
	return strings.Join(lines, "\n")
}

func number(sel *goquery.Selection) *int64 {
	value, ok := htmlutil.Number(htmlutil.Text(sel))
	if !ok {
		return nil
	}
	return &value
}

// linkArrows reads the arrow positions out of a class like "link1379" into
// a bitmask where position d sets bit d-1.
func linkArrows(icon *goquery.Selection) *int64 {
	class, _ := icon.Attr("class")
	for _, name := range strings.Fields(class) {
		if !strings.HasPrefix(name, "link") {
			continue
		}
		var mask int64
		for _, digit := range strings.TrimPrefix(name, "link") {
			position := int(digit - '0')
			if position < 1 || position > 9 {
				continue
			}
			mask += 1 << (position - 1)
		}
		return &mask
	}
	return nil
}

var pidPattern = regexp.MustCompile(`pid=(\d+)`)
var cidPattern = regexp.MustCompile(`cid=(\d+)`)

// ExtractEditions lines up the rarity blocks, card numbers and set links of
// a card page by position.
func ExtractEditions(doc *goquery.Document) []Edition {
	cardNumbers := htmlutil.Texts(doc.Find(".card_number"))
	setIDs := []string{}
	doc.Find(".pack_name ~ .link_value").Each(func(_ int, input *goquery.Selection) {
		value, _ := input.Attr("value")
		match := pidPattern.FindStringSubmatch(value)
		if match == nil {
			setIDs = append(setIDs, "")
			return
		}
		setIDs = append(setIDs, match[1])
	})

	editions := []Edition{}
	doc.Find(".rarity").Each(func(i int, rarity *goquery.Selection) {
		edition := Edition{
			RarityNames:     htmlutil.Texts(rarity.Find("p")),
			RarityLongNames: htmlutil.Texts(rarity.Find("span")),
		}
		if i < len(setIDs) {
			edition.SetID = setIDs[i]
		}
		if i < len(cardNumbers) {
			edition.CardNumber = cardNumbers[i]
		}
		editions = append(editions, edition)
	})
	return editions
}

// CardIDFromLink reads the cid parameter out of a link.
func CardIDFromLink(link string) (int64, bool) {
	match := cidPattern.FindStringSubmatch(link)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
