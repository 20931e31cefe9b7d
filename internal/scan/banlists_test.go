package scan

import (
	"errors"
	"superdb/internal/ygodb"
	"superdb/internal/ygodb/ygodbtest"
	"superdb/lib/fetch/fetchtest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var tcg = []ygodb.BanlistScope{{Locale: "en", Region: "TCG"}}

func TestBanlistScanner(t *testing.T) {
	tel := newRecorder(t)
	ctx := testContext(t)
	db := newStore(t)

	fake := fetchtest.New()
	fake.Set(site.BanlistUrl("en"), ygodbtest.BanlistDatesPage("2021-04-01", "2020-01-01"))
	fake.Set(site.BanlistDateUrl("2021-04-01", "en"), ygodbtest.BanlistPage(
		ygodb.Limitation{CardID: 4844, Severity: ygodb.Forbidden},
		ygodb.Limitation{CardID: 5000, Severity: ygodb.Limited},
	))
	fake.Set(site.BanlistDateUrl("2020-01-01", "en"), ygodbtest.BanlistPage(
		ygodb.Limitation{CardID: 4844, Severity: ygodb.Forbidden},
	))

	scanner := NewBanlistScanner(fake, db, BanlistScannerOptions{Site: site, Scopes: tcg}, tel)
	stats, err := scanner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, BanlistStats{Stored: 2}, stats)

	until, err := db.UntilDate(ctx, "2020-01-01", "TCG")
	require.NoError(t, err)
	require.Equal(t, "2021-04-01", until)

	id, err := db.BanlistID(ctx, "2021-04-01", "TCG")
	require.NoError(t, err)
	limitations, err := db.Limitations(ctx, id)
	require.NoError(t, err)
	diff := cmp.Diff([]ygodb.Limitation{
		{CardID: 4844, Severity: ygodb.Forbidden},
		{CardID: 5000, Severity: ygodb.Limited},
	}, limitations)
	if diff != "" {
		t.Fatal(diff)
	}

	stats, err = scanner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, BanlistStats{Skipped: 2}, stats)
	require.Equal(t, 1, fake.Count("forbiddenLimitedDate=2020-01-01"))
}

func TestBanlistFailedDateIsRetried(t *testing.T) {
	tel := newRecorder(t)
	ctx := testContext(t)
	db := newStore(t)

	fake := fetchtest.New()
	fake.Set(site.BanlistUrl("en"), ygodbtest.BanlistDatesPage("2020-01-01", "2021-04-01"))
	fake.Set(site.BanlistDateUrl("2020-01-01", "en"), ygodbtest.BanlistPage(
		ygodb.Limitation{CardID: 4844, Severity: ygodb.Forbidden},
	))
	fake.Fail(site.BanlistDateUrl("2021-04-01", "en"), errors.New("timeout"))

	scanner := NewBanlistScanner(fake, db, BanlistScannerOptions{Site: site, Scopes: tcg}, tel)
	stats, err := scanner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, BanlistStats{Stored: 1, Errors: 1}, stats)
	require.Equal(t, 1, tel.CountBroken(report_banlist_detail))

	exists, err := db.BanlistExists(ctx, "2021-04-01", "TCG")
	require.NoError(t, err)
	require.False(t, exists)
	until, err := db.UntilDate(ctx, "2020-01-01", "TCG")
	require.NoError(t, err)
	require.Equal(t, "", until)

	delete(fake.Errors, site.BanlistDateUrl("2021-04-01", "en"))
	fake.Set(site.BanlistDateUrl("2021-04-01", "en"), ygodbtest.BanlistPage())

	stats, err = scanner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, BanlistStats{Stored: 1, Skipped: 1}, stats)
	until, err = db.UntilDate(ctx, "2020-01-01", "TCG")
	require.NoError(t, err)
	require.Equal(t, "2021-04-01", until)
}

func TestBanlistScannerStrict(t *testing.T) {
	fake := fetchtest.New()
	fake.Set(site.BanlistUrl("en"), ygodbtest.BanlistDatesPage())

	scanner := NewBanlistScanner(fake, newStore(t), BanlistScannerOptions{
		Site:        site,
		Scopes:      tcg,
		StopOnError: true,
	}, newRecorder(t))
	_, err := scanner.Run(testContext(t))
	require.ErrorIs(t, err, ErrStopped)
}
