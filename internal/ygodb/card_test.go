package ygodb_test

import (
	"os"
	"path/filepath"
	"strings"
	"superdb/internal/ygodb"
	"superdb/internal/ygodb/ygodbtest"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func fixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return parse(t, string(contents))
}

func TestExtractCard(t *testing.T) {
	testCases := []struct {
		fixture  string
		expected ygodb.Card
	}{
		{
			fixture: "card_4007_en.html",
			expected: ygodb.Card{
				Name:            "Blue-Eyes White Dragon",
				CardText:        "This legendary dragon is a powerful engine of destruction.\nVirtually invincible, very few have faced this awesome creature and lived to tell the tale.",
				Attribute:       "LIGHT",
				MonsterType:     "Dragon",
				Types:           []string{"Normal"},
				LevelRankArrows: ygodbtest.Int(8),
				Atk:             ygodbtest.Int(3000),
				Def:             ygodbtest.Int(2500),
				Editions: []ygodb.Edition{
					{
						SetID:           "11101000",
						CardNumber:      "LOB-EN001",
						RarityNames:     []string{"UR"},
						RarityLongNames: []string{"Ultra Rare"},
					},
					{
						SetID:           "12103000",
						CardNumber:      "LDK2-ENK01",
						RarityNames:     []string{"C", "UR"},
						RarityLongNames: []string{"Common", "Ultra Rare"},
					},
				},
			},
		},
		{
			fixture: "card_link_en.html",
			expected: ygodb.Card{
				Name:        "Firewall Dragon",
				CardText:    "2+ monsters",
				Attribute:   "DARK",
				MonsterType: "Cyberse",
				Types:       []string{"Link", "Effect"},
				// arrows 1, 3, 7 and 9
				LevelRankArrows: ygodbtest.Int(1 + 4 + 64 + 256),
				Atk:             ygodbtest.Int(2500),
				Editions:        []ygodb.Edition{},
			},
		},
		{
			fixture: "card_pendulum_ja.html",
			expected: ygodb.Card{
				Name:            "オッドアイズ・ペンデュラム・ドラゴン",
				CardText:        "①：このカードが相手モンスターと戦闘を行う場合、このカードが相手に与える戦闘ダメージは倍になる。",
				PendulumEffect:  "①：１ターンに１度、自分のペンデュラムモンスターの戦闘で発生する自分への戦闘ダメージを０にできる。",
				Attribute:       "闇属性",
				MonsterType:     "ドラゴン族",
				Types:           []string{"ペンデュラム", "効果"},
				LevelRankArrows: ygodbtest.Int(7),
				Atk:             ygodbtest.Int(2500),
				Def:             ygodbtest.Int(2000),
				PendulumScale:   ygodbtest.Int(4),
				Editions:        []ygodb.Edition{},
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.fixture, func(t *testing.T) {
			card, err := ygodb.ExtractCard(fixture(t, test.fixture))
			require.NoError(t, err)
			if diff := cmp.Diff(test.expected, card); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestExtractCardNoData(t *testing.T) {
	_, err := ygodb.ExtractCard(fixture(t, "card_nodata.html"))
	require.ErrorIs(t, err, ygodb.ErrNoData)

	_, err = ygodb.ExtractCard(parse(t, ygodbtest.NoDataPage))
	require.ErrorIs(t, err, ygodb.ErrNoData)
}

func TestExtractCardMissingName(t *testing.T) {
	_, err := ygodb.ExtractCard(parse(t, `<div id="CardSet"><div id="cardname"><h1> </h1></div></div>`))
	var extractErr *ygodb.ExtractError
	require.ErrorAs(t, err, &extractErr)
	require.Equal(t, "card", extractErr.Page)
}

func TestExtractSpellCard(t *testing.T) {
	card := ygodb.Card{
		Name:      "Pot of Greed",
		Attribute: "Spell",
		CardText:  "Draw 2 cards.",
	}
	extracted, err := ygodb.ExtractCard(parse(t, ygodbtest.CardPage(card, "")))
	require.NoError(t, err)
	require.Equal(t, "Spell", extracted.Attribute)
	require.Equal(t, "", extracted.MonsterType)
	require.Empty(t, extracted.Types)
	require.Nil(t, extracted.LevelRankArrows)
	require.Nil(t, extracted.Atk)
	require.Nil(t, extracted.Def)
	require.Equal(t, "Draw 2 cards.", extracted.CardText)
}

func TestRenderedCardRoundTrip(t *testing.T) {
	card := ygodb.Card{
		Name:            "Decode Talker",
		Attribute:       "DARK",
		MonsterType:     "Cyberse",
		Types:           []string{"Link", "Effect"},
		LevelRankArrows: ygodbtest.Int(2 + 64 + 256),
		Atk:             ygodbtest.Int(2300),
		CardText:        "2+ Effect Monsters",
		Editions: []ygodb.Edition{{
			SetID:           "13101000",
			CardNumber:      "SDPL-EN042",
			RarityNames:     []string{"SR"},
			RarityLongNames: []string{"Super Rare"},
		}},
	}
	extracted, err := ygodb.ExtractCard(parse(t, ygodbtest.CardPage(card, "link279")))
	require.NoError(t, err)
	if diff := cmp.Diff(card, extracted); diff != "" {
		t.Fatal(diff)
	}
}

func TestCardIDFromLink(t *testing.T) {
	id, ok := ygodb.CardIDFromLink("/yugiohdb/card_search.action?ope=2&cid=4007")
	require.True(t, ok)
	require.EqualValues(t, 4007, id)

	_, ok = ygodb.CardIDFromLink("/yugiohdb/card_search.action?ope=1&pid=11101000")
	require.False(t, ok)
}
