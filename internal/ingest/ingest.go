// Package ingest runs the scanners against a store: translations first,
// then banlists, sets and finally cards.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"superdb/internal/scan"
	"superdb/internal/taxonomy"
	"superdb/internal/telemetry"
	"superdb/internal/ygodb"
	"superdb/lib/fetch"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_translations = "translations"
	report_store_card   = "store-card"
)

var tracer = otel.Tracer("superdb/ingest")

// Store is everything a sync writes to.
type Store interface {
	scan.SetStore
	scan.BanlistStore
	ValidateCard(card ygodb.Card) error
	// InsertCards writes every locale of one card id atomically.
	InsertCards(ctx context.Context, cards []ygodb.Card) error
	LastProcessedCardID(ctx context.Context) (int64, error)
}

type Options struct {
	Site ygodb.Site

	TranslationsFile  string
	ForceTranslations bool

	Locales        []string
	PrimaryLocales []string
	BanlistScopes  []ygodb.BanlistScope

	// StartID is where the card scan begins, 0 resumes after the last
	// stored card.
	StartID       int64
	IDs           []int64
	MissThreshold int
	Workers       int
	StopOnError   bool
}

type CardStats struct {
	scan.CardStats
	// Stored counts card ids written with their valid locales.
	Stored      int
	StoreErrors int
	LastID      int64
}

type Stats struct {
	Cards    CardStats
	Sets     scan.SetStats
	Banlists scan.BanlistStats
	Broken   int
	Warnings int
	Duration time.Duration
}

// Errors is the number of units of work that failed.
func (s Stats) Errors() int {
	return s.Cards.Errors + s.Cards.StoreErrors + s.Sets.Errors + s.Banlists.Errors
}

// ExitCode is 0 for a clean run and 1 when anything failed.
func ExitCode(stats Stats, err error) int {
	if err != nil || stats.Errors() > 0 {
		return 1
	}
	return 0
}

type Service struct {
	client   fetch.Client
	store    Store
	recorder *telemetry.Recorder
	tel      telemetry.API
	opts     Options
	started  time.Time
}

func NewService(client fetch.Client, store Store, opts Options, tel telemetry.API) *Service {
	if opts.Site.BaseUrl == "" {
		opts.Site = ygodb.NewSite(ygodb.DefaultBaseUrl)
	}
	if len(opts.Locales) == 0 {
		opts.Locales = ygodb.Locales
	}
	if opts.TranslationsFile == "" {
		opts.TranslationsFile = "translations.json"
	}
	recorder := telemetry.NewRecorder(tel)
	return &Service{
		client:   client,
		store:    store,
		recorder: recorder,
		tel:      telemetry.NewScopedAPI("ingest", recorder),
		opts:     opts,
		started:  time.Now(),
	}
}

// Translations loads the translation file, scraping and saving it first
// when it is missing or a rebuild was forced.
func (s *Service) Translations(ctx context.Context) (taxonomy.Map, error) {
	if !s.opts.ForceTranslations {
		m, err := taxonomy.Load(s.opts.TranslationsFile)
		if err == nil {
			slog.InfoContext(ctx, "loaded translations", "file", s.opts.TranslationsFile, "locales", len(m))
			return m, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "scraping translations", "locales", len(s.opts.Locales))
	m, err := taxonomy.Build(ctx, s.client, s.opts.Site, s.opts.Locales, s.recorder)
	if err != nil {
		s.tel.ReportBroken(report_translations, err)
		return nil, err
	}
	err = m.Save(s.opts.TranslationsFile)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "saved translations", "file", s.opts.TranslationsFile, "locales", len(m))
	return m, nil
}

func (s *Service) Banlists(ctx context.Context) (scan.BanlistStats, error) {
	scanner := scan.NewBanlistScanner(s.client, s.store, scan.BanlistScannerOptions{
		Site:        s.opts.Site,
		Scopes:      s.opts.BanlistScopes,
		StopOnError: s.opts.StopOnError,
	}, s.recorder)
	return scanner.Run(ctx)
}

func (s *Service) Sets(ctx context.Context) (scan.SetStats, error) {
	scanner := scan.NewSetScanner(s.client, s.store, scan.SetScannerOptions{
		Site:        s.opts.Site,
		Locales:     s.opts.Locales,
		StopOnError: s.opts.StopOnError,
	}, s.recorder)
	return scanner.Run(ctx)
}

// Cards scans card ids and stores every locale of every card found. Without
// an explicit start id or id list the scan resumes after the highest stored
// id.
func (s *Service) Cards(ctx context.Context, translations taxonomy.Map) (CardStats, error) {
	ctx, span := tracer.Start(ctx, "Service.Cards")
	defer span.End()

	translator, err := taxonomy.NewTranslator(translations, s.recorder)
	if err != nil {
		return CardStats{}, err
	}

	start := s.opts.StartID
	if start <= 0 {
		last, err := s.store.LastProcessedCardID(ctx)
		if err != nil {
			return CardStats{}, err
		}
		start = last + 1
	}
	if len(s.opts.IDs) == 0 {
		slog.InfoContext(ctx, "scanning cards", "start", start)
	} else {
		slog.InfoContext(ctx, "scanning cards", "ids", len(s.opts.IDs))
	}

	scanner := scan.NewCardScanner(s.client, scan.CardScannerOptions{
		Site:           s.opts.Site,
		Translator:     translator,
		Start:          start,
		IDs:            s.opts.IDs,
		MissThreshold:  s.opts.MissThreshold,
		PrimaryLocales: s.opts.PrimaryLocales,
		Locales:        s.opts.Locales,
		StopOnError:    s.opts.StopOnError,
		Workers:        s.opts.Workers,
	}, s.recorder)

	stats := CardStats{}
	for {
		batch, ok, err := scanner.Next(ctx)
		stats.CardStats = scanner.Stats()
		if err != nil {
			return stats, err
		}
		if !ok {
			break
		}

		valid := make([]ygodb.Card, 0, len(batch.Cards))
		for _, card := range batch.Cards {
			err := s.store.ValidateCard(card)
			if err != nil {
				stats.StoreErrors++
				s.tel.ReportBroken(report_store_card, err, card.ID, card.Locale)
				if s.opts.StopOnError {
					return stats, fmt.Errorf("%w: %w", scan.ErrStopped, err)
				}
				continue
			}
			valid = append(valid, card)
		}
		if len(valid) == 0 {
			continue
		}

		err = s.store.InsertCards(ctx, valid)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.StoreErrors++
			s.tel.ReportBroken(report_store_card, err, batch.ID)
			if s.opts.StopOnError {
				return stats, fmt.Errorf("%w: %w", scan.ErrStopped, err)
			}
			continue
		}
		stats.Stored++
		if stats.Stored%10 == 0 {
			slog.InfoContext(ctx, "processed cards", "count", stats.Stored, "id", batch.ID)
		}
	}

	last, err := s.store.LastProcessedCardID(ctx)
	if err != nil {
		return stats, err
	}
	stats.LastID = last
	span.SetAttributes(
		attribute.Int("stored", stats.Stored),
		attribute.Int64("last_id", last),
	)
	slog.InfoContext(ctx, "card scan done", "stored", stats.Stored, "last_id", last)
	return stats, nil
}

// Run performs a full sync. It stops at the first step that returns an
// error, the statistics gathered until then are returned with it.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Service.Run")
	defer span.End()

	stats := Stats{}
	err := s.run(ctx, &stats)
	return s.Finish(stats), err
}

func (s *Service) run(ctx context.Context, stats *Stats) error {
	translations, err := s.Translations(ctx)
	if err != nil {
		return err
	}
	stats.Banlists, err = s.Banlists(ctx)
	if err != nil {
		return err
	}
	stats.Sets, err = s.Sets(ctx)
	if err != nil {
		return err
	}
	stats.Cards, err = s.Cards(ctx, translations)
	return err
}

// Finish fills in the counters the service tracks across steps.
func (s *Service) Finish(stats Stats) Stats {
	stats.Broken = s.recorder.CountBroken("")
	stats.Warnings = s.recorder.CountWarnings("")
	stats.Duration = time.Since(s.started)
	return stats
}
