package scan

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"superdb/internal/taxonomy"
	"superdb/internal/telemetry"
	"superdb/internal/ygodb"
	"superdb/internal/ygodb/ygodbtest"
	"superdb/lib/fetch/fetchtest"
	libtelemetry "superdb/lib/telemetry"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var site = ygodb.NewSite("http://ygodb.test")

var localeNames = map[string]string{
	"en": "Dark Magician",
	"ja": "ブラック・マジシャン",
	"fr": "Magicien Sombre",
	"de": "Dunkler Magier",
}

func card(id int64, locale string) ygodb.Card {
	return ygodb.Card{
		ID:              id,
		Locale:          locale,
		Name:            localeNames[locale] + " " + strconv.FormatInt(id, 10),
		CardText:        "The ultimate wizard.",
		Attribute:       "DARK",
		MonsterType:     "Spellcaster",
		Types:           []string{"Normal"},
		LevelRankArrows: ygodbtest.Int(7),
		Atk:             ygodbtest.Int(2500),
		Def:             ygodbtest.Int(2100),
	}
}

// cardSite serves a card for every id in [first, last] and the no data
// page for everything else.
func cardSite(first, last int64) *fetchtest.Pages {
	fake := fetchtest.New()
	fake.Handler = func(link string) (string, bool) {
		parsed, err := url.Parse(link)
		if err != nil {
			return "", false
		}
		id, err := strconv.ParseInt(parsed.Query().Get("cid"), 10, 64)
		if err != nil {
			return "", false
		}
		if id < first || id > last {
			return ygodbtest.NoDataPage, true
		}
		return ygodbtest.CardPage(card(id, parsed.Query().Get("request_locale")), ""), true
	}
	return fake
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)
	return ctx
}

func newRecorder(t *testing.T) *telemetry.Recorder {
	cleanup := libtelemetry.SetupForTesting(t)
	t.Cleanup(cleanup)
	return telemetry.NewRecorder(telemetry.SlogAPI{})
}

func drain(t *testing.T, scanner *CardScanner) []CardBatch {
	t.Helper()
	ctx := testContext(t)
	batches := []CardBatch{}
	for {
		batch, ok, err := scanner.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return batches
		}
		batches = append(batches, batch)
	}
}

func locales(batch CardBatch) []string {
	out := []string{}
	for _, c := range batch.Cards {
		out = append(out, c.Locale)
	}
	return out
}

func TestMissTermination(t *testing.T) {
	tel := newRecorder(t)
	scanner := NewCardScanner(cardSite(100, 199), CardScannerOptions{
		Site:           site,
		Start:          100,
		MissThreshold:  100,
		PrimaryLocales: []string{"en", "ja"},
		Locales:        []string{"en", "ja"},
	}, tel)

	batches := drain(t, scanner)
	require.Len(t, batches, 100)
	require.Equal(t, int64(100), batches[0].ID)
	require.Equal(t, int64(199), batches[99].ID)
	require.Equal(t, int64(300), scanner.Current())
	require.Equal(t, CardStats{Found: 100, Missed: 100}, scanner.Stats())
	require.Empty(t, tel.Broken())

	// the scan stays finished
	_, ok, err := scanner.Next(testContext(t))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMissesResetOnHit(t *testing.T) {
	fake := fetchtest.New()
	fake.Handler = func(link string) (string, bool) {
		parsed, _ := url.Parse(link)
		id, _ := strconv.ParseInt(parsed.Query().Get("cid"), 10, 64)
		if id == 1 || id == 4 || id == 7 {
			return ygodbtest.CardPage(card(id, parsed.Query().Get("request_locale")), ""), true
		}
		return ygodbtest.NoDataPage, true
	}

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:          site,
		Start:         1,
		MissThreshold: 3,
		Locales:       []string{"en", "ja"},
	}, newRecorder(t))

	batches := drain(t, scanner)
	ids := []int64{}
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	require.Equal(t, []int64{1, 4, 7}, ids)
	require.Equal(t, int64(11), scanner.Current())
}

func TestPrimaryMissSkipsSecondaries(t *testing.T) {
	fake := cardSite(10, 10)
	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:          site,
		Start:         11,
		MissThreshold: 1,
		Locales:       []string{"en", "fr", "ja", "de"},
	}, newRecorder(t))

	require.Empty(t, drain(t, scanner))
	require.Equal(t, 2, len(fake.Requests()))
	require.Equal(t, 0, fake.Count("request_locale=fr"))
	require.Equal(t, 0, fake.Count("request_locale=de"))
}

func TestSecondaryFailureDoesNotAbort(t *testing.T) {
	tel := newRecorder(t)
	fake := cardSite(10, 10)
	fake.Fail(site.CardUrl(10, "fr"), errors.New("connection reset"))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:    site,
		Locales: []string{"en", "fr", "ja", "de"},
		Workers: 3,
	}, tel)

	batch, err := scanner.Scrape(testContext(t), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"en", "ja", "de"}, locales(batch))
	require.Equal(t, 1, tel.CountBroken(report_card_locale))
}

func TestLocaleOrder(t *testing.T) {
	scanner := NewCardScanner(cardSite(10, 10), CardScannerOptions{
		Site:           site,
		PrimaryLocales: []string{"en", "ja"},
		Locales:        ygodb.Locales,
		Workers:        4,
	}, newRecorder(t))

	batch, err := scanner.Scrape(testContext(t), 10)
	require.NoError(t, err)
	diff := cmp.Diff([]string{"en", "ja", "fr", "de", "ae", "cn", "es", "it", "ko", "pt"}, locales(batch))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestPrimaryErrorsCountAsErrors(t *testing.T) {
	tel := newRecorder(t)
	fake := cardSite(10, 12)
	fake.Fail(site.CardUrl(11, "en"), errors.New("timeout"))
	fake.Fail(site.CardUrl(11, "ja"), errors.New("timeout"))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:          site,
		Start:         10,
		MissThreshold: 2,
		Locales:       []string{"en", "ja"},
	}, tel)

	ids := []int64{}
	for _, b := range drain(t, scanner) {
		ids = append(ids, b.ID)
	}
	require.Equal(t, []int64{10, 12}, ids)
	require.Equal(t, CardStats{Found: 2, Missed: 2, Errors: 1}, scanner.Stats())
	require.Equal(t, 1, tel.CountBroken(report_card_scrape))
}

func TestOnePrimaryLocaleIsEnough(t *testing.T) {
	fake := cardSite(10, 10)
	fake.Set(site.CardUrl(10, "en"), ygodbtest.NoDataPage)

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:    site,
		Locales: []string{"en", "ja"},
	}, newRecorder(t))

	batch, err := scanner.Scrape(testContext(t), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"ja"}, locales(batch))
}

func TestPrimaryErrorAndMissIsAnError(t *testing.T) {
	fake := cardSite(10, 10)
	fake.Set(site.CardUrl(10, "en"), ygodbtest.NoDataPage)
	fake.Fail(site.CardUrl(10, "ja"), errors.New("timeout"))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:    site,
		Locales: []string{"en", "ja"},
	}, newRecorder(t))

	_, err := scanner.Scrape(testContext(t), 10)
	require.Error(t, err)
	require.NotErrorIs(t, err, ygodb.ErrNoData)
}

func TestStopOnError(t *testing.T) {
	fake := cardSite(10, 12)
	fake.Fail(site.CardUrl(11, "en"), errors.New("timeout"))
	fake.Fail(site.CardUrl(11, "ja"), errors.New("timeout"))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:        site,
		Start:       10,
		Locales:     []string{"en", "ja"},
		StopOnError: true,
	}, newRecorder(t))

	ctx := testContext(t)
	batch, ok, err := scanner.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), batch.ID)

	_, ok, err = scanner.Next(ctx)
	require.ErrorIs(t, err, ErrStopped)
	require.False(t, ok)
	require.Equal(t, int64(12), scanner.Current())
}

func TestIDList(t *testing.T) {
	scanner := NewCardScanner(cardSite(100, 199), CardScannerOptions{
		Site:          site,
		IDs:           []int64{150, 5000, 5001, 120},
		MissThreshold: 1,
		Locales:       []string{"en", "ja"},
	}, newRecorder(t))

	ids := []int64{}
	for _, b := range drain(t, scanner) {
		ids = append(ids, b.ID)
	}
	require.Equal(t, []int64{150, 120}, ids)
	require.Equal(t, 2, scanner.Stats().Missed)
}

func TestSeek(t *testing.T) {
	scanner := NewCardScanner(cardSite(100, 105), CardScannerOptions{
		Site:          site,
		Start:         100,
		MissThreshold: 2,
		Locales:       []string{"en", "ja"},
	}, newRecorder(t))

	batches := drain(t, scanner)
	require.Len(t, batches, 6)
	require.Equal(t, int64(108), scanner.Current())

	scanner.Seek(103)
	batches = drain(t, scanner)
	require.Len(t, batches, 3)
}

func TestNotFoundIsMiss(t *testing.T) {
	tel := newRecorder(t)
	scanner := NewCardScanner(fetchtest.New(), CardScannerOptions{
		Site:          site,
		Start:         100,
		MissThreshold: 5,
		Locales:       []string{"en", "ja"},
	}, tel)

	batches := drain(t, scanner)
	require.Empty(t, batches)
	require.Equal(t, CardStats{Missed: 5}, scanner.Stats())
	require.Empty(t, tel.Broken())
}

func TestEditionsCarried(t *testing.T) {
	en := card(10, "en")
	en.Editions = []ygodb.Edition{{
		SetID:           "13101000",
		CardNumber:      "SDPL-EN042",
		RarityNames:     []string{"SR"},
		RarityLongNames: []string{"Super Rare"},
	}}
	fake := fetchtest.New()
	fake.Set(site.CardUrl(10, "en"), ygodbtest.CardPage(en, ""))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:    site,
		Locales: []string{"en"},
	}, newRecorder(t))

	batch, err := scanner.Scrape(testContext(t), 10)
	require.NoError(t, err)
	require.Len(t, batch.Cards, 1)
	if diff := cmp.Diff(en.Editions, batch.Cards[0].Editions); diff != "" {
		t.Fatal(diff)
	}
}

func TestCancelled(t *testing.T) {
	scanner := NewCardScanner(cardSite(100, 199), CardScannerOptions{
		Site:    site,
		Start:   100,
		Locales: []string{"en", "ja"},
	}, newRecorder(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := scanner.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ok)
}

func TestExists(t *testing.T) {
	fake := cardSite(10, 10)
	fake.Fail(site.CardUrl(12, "en"), errors.New("timeout"))
	fake.Fail(site.CardUrl(12, "ja"), errors.New("timeout"))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:    site,
		Locales: []string{"en", "ja"},
	}, newRecorder(t))
	ctx := testContext(t)

	exists, err := scanner.Exists(ctx, 10)
	require.NoError(t, err)
	require.True(t, exists)
	// the first primary locale answers
	require.Equal(t, 1, fake.Count("cid=10"))

	exists, err = scanner.Exists(ctx, 11)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = scanner.Exists(ctx, 12)
	require.Error(t, err)
	require.False(t, exists)
}

func TestTranslatesRecords(t *testing.T) {
	tel := newRecorder(t)
	m := taxonomy.Map{
		"en": {
			Attribute:   map[string]string{"1": "LIGHT", "2": "DARK"},
			MonsterType: map[string]string{"1": "Spellcaster"},
			Type:        map[string]string{"1": "Normal"},
			Spell:       "Spell",
			Trap:        "Trap",
		},
		"ja": {
			Attribute:   map[string]string{"1": "光属性", "2": "闇属性"},
			MonsterType: map[string]string{"1": "魔法使い族"},
			Type:        map[string]string{"1": "通常"},
			Spell:       "魔法",
			Trap:        "罠",
		},
	}
	translator, err := taxonomy.NewTranslator(m, tel)
	require.NoError(t, err)

	ja := card(10, "ja")
	ja.Attribute = "闇属性"
	ja.MonsterType = "魔法使い族"
	ja.Types = []string{"通常"}
	fake := fetchtest.New()
	fake.Set(site.CardUrl(10, "en"), ygodbtest.CardPage(card(10, "en"), ""))
	fake.Set(site.CardUrl(10, "ja"), ygodbtest.CardPage(ja, ""))

	scanner := NewCardScanner(fake, CardScannerOptions{
		Site:       site,
		Translator: translator,
		Locales:    []string{"en", "ja"},
	}, tel)

	batch, err := scanner.Scrape(testContext(t), 10)
	require.NoError(t, err)
	require.Len(t, batch.Cards, 2)
	translated := batch.Cards[1]
	require.Equal(t, "ja", translated.Locale)
	require.Equal(t, "DARK", translated.Attribute)
	require.Equal(t, "Spellcaster", translated.MonsterType)
	require.Equal(t, []string{"Normal"}, translated.Types)
	require.Equal(t, localeNames["ja"]+" 10", translated.Name)
	require.Empty(t, tel.Warnings())
}
