package commands

import (
	"slices"
	"superdb/internal/ingest"
	"superdb/internal/scan"
	"superdb/internal/store"
	"superdb/internal/ygodb"
	"superdb/lib/configutil"
	"superdb/lib/fetch"
	"superdb/lib/restyutil"
	"time"
)

type Config struct {
	Db               store.Config `json:"db"`
	TranslationsFile string       `json:"translations_file"`
	ReleaseArchive   string       `json:"release_archive"`

	BaseUrl        string   `json:"base_url"`
	Locales        []string `json:"locales"`
	PrimaryLocales []string `json:"primary_locales"`

	MissThreshold int   `json:"miss_threshold"`
	StartID       int64 `json:"start_id"`
	Workers       int   `json:"workers"`
	StopOnError   bool  `json:"stop_on_error"`

	RequestsPerSecond float64 `json:"requests_per_second"`
	Retries           int     `json:"retries"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	UserAgent         string  `json:"user_agent"`
	// DumpHttp is a directory every http exchange is written to, empty
	// disables it.
	DumpHttp string `json:"dump_http"`
}

func defaultConfig() Config {
	fetchDefaults := fetch.DefaultOptions()
	return Config{
		Db:                store.Config{File: "superdb.sqlite", FirstCardID: ygodb.FirstCardID},
		TranslationsFile:  "translations.json",
		ReleaseArchive:    "dist/superdb.zip",
		BaseUrl:           ygodb.DefaultBaseUrl,
		Locales:           slices.Clone(ygodb.Locales),
		PrimaryLocales:    slices.Clone(ygodb.PrimaryLocales),
		MissThreshold:     scan.DefaultMissThreshold,
		Workers:           1,
		RequestsPerSecond: fetchDefaults.RequestsPerSecond,
		Retries:           fetchDefaults.Retries,
		TimeoutSeconds:    int(fetchDefaults.Timeout / time.Second),
		UserAgent:         fetchDefaults.UserAgent,
	}
}

// loadConfig layers `path` and its .local variant over the defaults.
func loadConfig(path string) (Config, error) {
	return configutil.Read(path, defaultConfig())
}

func (c Config) fetchOptions() (fetch.Options, error) {
	opts := fetch.DefaultOptions()
	opts.BaseUrl = c.BaseUrl
	opts.RequestsPerSecond = c.RequestsPerSecond
	opts.Retries = c.Retries
	if c.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	if c.DumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(c.DumpHttp)
		if err != nil {
			return fetch.Options{}, err
		}
		opts.Output = output
	}
	return opts, nil
}

func (c Config) ingestOptions() ingest.Options {
	return ingest.Options{
		Site:             ygodb.NewSite(c.BaseUrl),
		TranslationsFile: c.TranslationsFile,
		Locales:          c.Locales,
		PrimaryLocales:   c.PrimaryLocales,
		StartID:          c.StartID,
		MissThreshold:    c.MissThreshold,
		Workers:          c.Workers,
		StopOnError:      c.StopOnError,
	}
}
