// Package ygodbtest renders pages shaped like the card database for tests.
package ygodbtest

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"superdb/internal/ygodb"
)

func render(tmpl *template.Template, data any) string {
	var buffer bytes.Buffer
	err := tmpl.Execute(&buffer, data)
	if err != nil {
		panic(err)
	}
	return buffer.String()
}

var funcs = template.FuncMap{
	"deref": func(value *int64) string {
		if value == nil {
			return "?"
		}
		return fmt.Sprint(*value)
	},
}

var cardTemplate = template.Must(template.New("card").Funcs(funcs).Parse(`<!DOCTYPE html>
<html><head><title>{{.Card.Name}} | Card Details</title></head>
<body>
<div id="article_body">
<div id="CardSet">
	<div id="cardname"><h1>{{.Card.Name}}
		<span class="ruby">{{.Card.Name}}</span></h1></div>
	<div class="item_box"><span class="item_box_title">Attribute</span><span class="item_box_value">{{.Card.Attribute}}</span></div>
	{{- if .Link}}
	<div class="item_box"><span class="item_box_title">Link</span><span class="item_box_value"><img class="icon_img_set {{.Link}}" src="link.png">Link</span></div>
	{{- else if .Card.LevelRankArrows}}
	<div class="item_box"><span class="item_box_title">Level</span><span class="item_box_value">Level {{deref .Card.LevelRankArrows}}</span></div>
	{{- end}}
	{{- if .Monster}}
	<div class="item_box"><span class="item_box_title">ATK</span><span class="item_box_value">{{deref .Card.Atk}}</span></div>
	<div class="item_box"><span class="item_box_title">DEF</span><span class="item_box_value">{{deref .Card.Def}}</span></div>
	{{- end}}
	{{- if .Card.PendulumScale}}
	<div class="item_box"><span class="item_box_title">Pendulum Scale</span><span class="item_box_value">Scale {{deref .Card.PendulumScale}}</span></div>
	<div class="item_box_text pen_effect"><div class="item_box_text">{{.Card.PendulumEffect}}</div></div>
	{{- end}}
	{{- if .Card.MonsterType}}
	<p class="species"><span>{{.Card.MonsterType}}</span>{{range .Card.Types}}<span>／</span><span>{{.}}</span>{{end}}</p>
	{{- end}}
	<div class="item_box_text CardText"><div class="item_box_text">
		<div class="text_title">Card Text</div>{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div></div>
</div>
<div id="update_list">
{{- range .Card.Editions}}
	<div class="t_row">
		<div class="inside">
			<div class="card_number">{{.CardNumber}}</div>
			<div class="pack_name flex_1">pack</div>
			<input type="hidden" class="link_value" value="/yugiohdb/card_search.action?ope=1&amp;sess=1&amp;pid={{.SetID}}&amp;rp=99999">
			<div class="rarity">{{range .RarityNames}}<p>{{.}}</p>{{end}}{{range .RarityLongNames}}<span>{{.}}</span>{{end}}</div>
		</div>
	</div>
{{- end}}
</div>
</div>
</body></html>`))

// CardPage renders a card detail page. Link is the link arrow class, like
// "link13", or "" for other cards. Card text lines are separated by <br>.
func CardPage(card ygodb.Card, link string, lines ...string) string {
	if len(lines) == 0 && card.CardText != "" {
		lines = []string{card.CardText}
	}
	return render(cardTemplate, struct {
		Card    ygodb.Card
		Link    string
		Monster bool
		Lines   []string
	}{
		Card:    card,
		Link:    link,
		Monster: card.Atk != nil || card.Def != nil,
		Lines:   lines,
	})
}

// NoDataPage is what the database answers for an unassigned card id.
const NoDataPage = `<!DOCTYPE html>
<html><body><div id="article_body"><div class="no_data">No data found.</div></div></body></html>`

var vocabularyTemplate = template.Must(template.New("vocabulary").Parse(`<!DOCTYPE html>
<html><body><form id="form_search">
<div id="filter_attribute"><ul>{{range .Attribute}}
	<li><span><input type="checkbox" name="attr" value="{{.Key}}">{{.Label}}</span></li>{{end}}
</ul></div>
<div id="filter_effect_set"><ul>{{range .Effect}}
	<li><span><input type="checkbox" name="effe" value="{{.Key}}">{{.Label}}</span></li>{{end}}
</ul></div>
<div id="filter_specis"><ul>{{range .MonsterType}}
	<li><span><input type="checkbox" name="species" value="{{.Key}}">{{.Label}}</span></li>{{end}}
</ul></div>
<div id="filter_other"><ul>{{range .Type}}
	<li><span><input type="checkbox" name="other" value="{{.Key}}">{{.Label}}</span></li>{{end}}
</ul></div>
</form></body></html>`))

type entry struct {
	Key   string
	Label string
}

func entries(m map[string]string) []entry {
	out := []entry{}
	for k, v := range m {
		out = append(out, entry{Key: k, Label: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// VocabularyPage renders the search form. Attribute keys at or above 20 go
// into the effect section, like the real form.
func VocabularyPage(vocabulary ygodb.Vocabulary) string {
	attribute := map[string]string{}
	effect := map[string]string{}
	for k, v := range vocabulary.Attribute {
		if len(k) >= 2 && k >= "20" {
			effect[k] = v
			continue
		}
		attribute[k] = v
	}
	return render(vocabularyTemplate, map[string][]entry{
		"Attribute":   entries(attribute),
		"Effect":      entries(effect),
		"MonsterType": entries(vocabulary.MonsterType),
		"Type":        entries(vocabulary.Type),
	})
}

var setListTemplate = template.Must(template.New("set_list").Parse(`<!DOCTYPE html>
<html><body><div id="card_list_1" class="list_style">{{range .}}
<div class="pack pack_en">
	<p><strong>{{.Name}}</strong></p>
	<div class="greater_than"></div>
	<input type="hidden" class="link_value" value="/yugiohdb/card_search.action?ope=1&amp;sess=1&amp;pid={{.ID}}&amp;rp=99999">
</div>{{end}}
</div></body></html>`))

// SetListPage renders the product listing for the given links, only Name
// and ID are used.
func SetListPage(links ...ygodb.SetLink) string {
	return render(setListTemplate, links)
}

var setTemplate = template.Must(template.New("set").Parse(`<!DOCTYPE html>
<html><body>
<div id="broad_title"><div><h1><strong>{{.Name}}</strong></h1></div></div>
{{if .Date}}<div id="previewed">{{.Date}}</div>{{end}}
<div id="card_list">{{range .CardIDs}}
	<div class="t_row c_normal">
		<input type="hidden" class="link_value" value="/yugiohdb/card_search.action?ope=2&amp;cid={{.}}">
	</div>{{end}}
</div>
</body></html>`))

// SetPage renders a product detail page with the release date printed as
// `date` and card links in the first extraction strategy's markup.
func SetPage(name, date string, cardIDs ...int64) string {
	return render(setTemplate, struct {
		Name    string
		Date    string
		CardIDs []int64
	}{Name: name, Date: date, CardIDs: cardIDs})
}

var banlistDatesTemplate = template.Must(template.New("banlist_dates").Parse(`<!DOCTYPE html>
<html><body><select id="forbiddenLimitedDate" name="forbiddenLimitedDate">{{range .}}
	<option value="{{.}}">{{.}}</option>{{end}}
</select></body></html>`))

func BanlistDatesPage(dates ...string) string {
	return render(banlistDatesTemplate, dates)
}

var banlistTemplate = template.Must(template.New("banlist").Parse(`<!DOCTYPE html>
<html><body>{{range .}}
<div id="{{.ID}}" class="list_set">{{range .CardIDs}}
	<div class="t_row"><input type="hidden" class="link_value" value="/yugiohdb/card_search.action?ope=2&amp;cid={{.}}"></div>{{end}}
</div>{{end}}
</body></html>`))

// BanlistPage renders the buckets that have at least one card.
func BanlistPage(limitations ...ygodb.Limitation) string {
	type bucket struct {
		ID      string
		CardIDs []int64
	}
	buckets := []bucket{}
	for _, b := range ygodb.BanlistBuckets {
		ids := []int64{}
		for _, l := range limitations {
			if l.Severity == b.Severity {
				ids = append(ids, l.CardID)
			}
		}
		if len(ids) > 0 {
			buckets = append(buckets, bucket{ID: b.ID, CardIDs: ids})
		}
	}
	return render(banlistTemplate, buckets)
}

func Int(v int64) *int64 {
	return &v
}
