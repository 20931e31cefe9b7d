package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"superdb/internal/ingest"
	"superdb/internal/scan"
	"superdb/internal/store"
	"superdb/internal/ygodb"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "superdb.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), config)
	require.Equal(t, ygodb.Locales, config.Locales)
	require.Equal(t, 100, config.MissThreshold)
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "superdb.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// comments are allowed
		db: { file: "cards.sqlite" },
		locales: ["en", "ja"],
		workers: 3,
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "superdb.local.json5"), []byte(`{
		workers: 5,
		stop_on_error: true,
	}`), 0644))

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "cards.sqlite", config.Db.File)
	require.Equal(t, []string{"en", "ja"}, config.Locales)
	require.Equal(t, 5, config.Workers)
	require.True(t, config.StopOnError)
	// untouched fields keep their defaults
	require.Equal(t, "translations.json", config.TranslationsFile)
	require.Equal(t, ygodb.PrimaryLocales, config.PrimaryLocales)
}

func TestFetchOptions(t *testing.T) {
	config := defaultConfig()
	config.TimeoutSeconds = 5
	config.DumpHttp = filepath.Join(t.TempDir(), "http")

	opts, err := config.fetchOptions()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, opts.Timeout)
	require.NotNil(t, opts.Output)
	_, err = os.Stat(config.DumpHttp)
	require.NoError(t, err)
}

func TestRenderRunStats(t *testing.T) {
	var out bytes.Buffer
	renderRunStats(&out, ingest.Stats{
		Cards: ingest.CardStats{
			CardStats: scan.CardStats{Found: 12, Missed: 100, Errors: 1},
			Stored:    12,
			LastID:    4018,
		},
		Sets:     scan.SetStats{Stored: 3},
		Banlists: scan.BanlistStats{Skipped: 2},
		Warnings: 4,
	})
	text := out.String()
	require.Contains(t, text, "cards")
	require.Contains(t, text, "4 warnings")
	require.Contains(t, text, "last card id 4018")
}

func TestRenderCounts(t *testing.T) {
	var out bytes.Buffer
	renderCounts(&out, []store.TableCount{{Table: "card", Rows: 42}}, 4048)
	require.Contains(t, out.String(), "42")
	require.Contains(t, out.String(), "last card id 4048")
}
