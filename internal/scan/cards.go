package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"superdb/internal/taxonomy"
	"superdb/internal/telemetry"
	"superdb/internal/ygodb"
	"superdb/lib/fetch"
	"superdb/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	report_card_scrape  = "scrape"
	report_card_locale  = "scrape-locale"
	report_card_edition = "scrape-edition"
	report_card_exists  = "exists"
)

const DefaultMissThreshold = 100

// CardBatch holds every locale of one card, primary locales first.
type CardBatch struct {
	ID    int64
	Cards []ygodb.Card
}

type CardScannerOptions struct {
	Site ygodb.Site
	// Translator maps vocabulary into the canonical locale, nil leaves
	// records as scraped.
	Translator *taxonomy.Translator

	Start int64
	// IDs replaces the sequential walk with a fixed list of ids. Misses
	// do not end a list scan.
	IDs []int64

	MissThreshold  int
	PrimaryLocales []string
	Locales        []string
	StopOnError    bool
	// Workers bounds how many secondary locales of one card are fetched at
	// once.
	Workers int
}

type CardStats struct {
	Found  int
	Missed int
	Errors int
}

// CardScanner is a restartable iterator over existing card ids. Each call
// to Next scrapes ids in order until one has a card or the scan is over.
type CardScanner struct {
	client fetch.Client
	tel    telemetry.API
	opts   CardScannerOptions

	primary   []string
	secondary []string

	current int64
	listPos int
	misses  int
	stats   CardStats
}

func NewCardScanner(client fetch.Client, opts CardScannerOptions, tel telemetry.API) *CardScanner {
	if opts.MissThreshold <= 0 {
		opts.MissThreshold = DefaultMissThreshold
	}
	if len(opts.Locales) == 0 {
		opts.Locales = ygodb.Locales
	}
	if len(opts.PrimaryLocales) == 0 {
		opts.PrimaryLocales = ygodb.PrimaryLocales
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Site.BaseUrl == "" {
		opts.Site = ygodb.NewSite(ygodb.DefaultBaseUrl)
	}

	secondary := []string{}
	for _, locale := range opts.Locales {
		if !slices.Contains(opts.PrimaryLocales, locale) {
			secondary = append(secondary, locale)
		}
	}

	return &CardScanner{
		client:    client,
		tel:       telemetry.NewScopedAPI("card_scanner", tel),
		opts:      opts,
		primary:   opts.PrimaryLocales,
		secondary: secondary,
		current:   opts.Start,
	}
}

// Current is the next id Next will scrape.
func (s *CardScanner) Current() int64 {
	if len(s.opts.IDs) > 0 {
		if s.listPos < len(s.opts.IDs) {
			return s.opts.IDs[s.listPos]
		}
		return s.opts.IDs[len(s.opts.IDs)-1] + 1
	}
	return s.current
}

// Seek moves a sequential scan to id and forgets the misses counted so far.
func (s *CardScanner) Seek(id int64) {
	s.current = id
	s.misses = 0
}

func (s *CardScanner) Stats() CardStats {
	return s.stats
}

// Next returns the next card, or false once MissThreshold ids in a row had
// no card. With StopOnError the first id that could not be read ends the
// scan with ErrStopped, otherwise it is counted as an error and as a miss.
func (s *CardScanner) Next(ctx context.Context) (CardBatch, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return CardBatch{}, false, err
		}

		var id int64
		if len(s.opts.IDs) > 0 {
			if s.listPos >= len(s.opts.IDs) {
				return CardBatch{}, false, nil
			}
			id = s.opts.IDs[s.listPos]
			s.listPos++
		} else {
			if s.misses >= s.opts.MissThreshold {
				slog.InfoContext(
					ctx, "card scan finished",
					"consecutive_misses", s.misses,
					"last_id", s.current-1,
				)
				return CardBatch{}, false, nil
			}
			id = s.current
			s.current++
		}

		batch, err := s.Scrape(ctx, id)
		switch {
		case err == nil:
			s.misses = 0
			s.stats.Found++
			scannedCounter.Add(ctx, 1)
			return batch, true, nil
		case ctx.Err() != nil:
			return CardBatch{}, false, ctx.Err()
		case errors.Is(err, ygodb.ErrNoData):
			s.misses++
			s.stats.Missed++
			missedCounter.Add(ctx, 1)
			slog.InfoContext(
				ctx, "no data found",
				"id", id,
				"consecutive_misses", s.misses,
				"threshold", s.opts.MissThreshold,
			)
		default:
			s.misses++
			s.stats.Errors++
			countError(ctx, "card")
			s.tel.ReportBroken(report_card_scrape, err, id)
			if s.opts.StopOnError {
				return CardBatch{}, false, stopped(err, "card %d", id)
			}
		}
	}
}

type localeResult struct {
	card ygodb.Card
	err  error
}

func (s *CardScanner) scrapeLocale(ctx context.Context, id int64, locale string) (ygodb.Card, error) {
	link := s.opts.Site.CardUrl(id, locale)
	doc, err := s.client.Document(ctx, link)
	if fetch.IsNotFound(err) {
		return ygodb.Card{}, ygodb.ErrNoData
	}
	if err != nil {
		return ygodb.Card{}, err
	}
	card, err := ygodb.ExtractCard(doc)
	if err != nil {
		return ygodb.Card{}, err
	}
	card.ID = id
	card.Locale = locale
	return card, nil
}

// Scrape reads every locale of one card id. ErrNoData means no primary
// locale has a card. When no primary locale has a card and at least one
// failed for another reason, the failures are returned.
func (s *CardScanner) Scrape(ctx context.Context, id int64) (CardBatch, error) {
	ctx, span := tracer.Start(ctx, "CardScanner.Scrape")
	defer span.End()
	span.SetAttributes(attribute.Int64("id", id))

	batch := CardBatch{ID: id}
	var primaryErrs []error
	for _, locale := range s.primary {
		card, err := s.scrapeLocale(ctx, id, locale)
		if errors.Is(err, ygodb.ErrNoData) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return CardBatch{}, ctx.Err()
			}
			s.tel.ReportBroken(report_card_locale, err, id, locale)
			primaryErrs = append(primaryErrs, fmt.Errorf("%s: %w", locale, err))
			continue
		}
		batch.Cards = append(batch.Cards, card)
	}
	if len(batch.Cards) == 0 {
		if len(primaryErrs) > 0 {
			err := errors.Join(primaryErrs...)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return CardBatch{}, err
		}
		span.SetAttributes(attribute.Bool("no_data", true))
		return CardBatch{}, ygodb.ErrNoData
	}

	results := make([]localeResult, len(s.secondary))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)
	for i, locale := range s.secondary {
		group.Go(func() error {
			card, err := s.scrapeLocale(groupCtx, id, locale)
			results[i] = localeResult{card: card, err: err}
			return nil
		})
	}
	group.Wait()
	if err := ctx.Err(); err != nil {
		return CardBatch{}, err
	}

	for i, result := range results {
		locale := s.secondary[i]
		switch {
		case errors.Is(result.err, ygodb.ErrNoData):
			slog.InfoContext(ctx, "no data found", "id", id, "locale", locale)
		case result.err != nil:
			s.tel.ReportBroken(report_card_locale, result.err, id, locale)
		default:
			batch.Cards = append(batch.Cards, result.card)
		}
	}

	for i, card := range batch.Cards {
		for _, edition := range card.Editions {
			if edition.SetID == "" {
				s.tel.ReportWarning(
					report_card_edition,
					fmt.Errorf("edition %q has no set", edition.CardNumber),
					id, card.Locale,
				)
			}
		}
		if s.opts.Translator != nil {
			batch.Cards[i] = s.opts.Translator.Translate(card)
		}
	}

	span.SetAttributes(attribute.Int("locales", len(batch.Cards)))
	return batch, nil
}

// Exists checks the primary locales for a card name without reading the
// rest of the page. An error is returned only when every locale failed.
func (s *CardScanner) Exists(ctx context.Context, id int64) (bool, error) {
	var errs []error
	for _, locale := range s.primary {
		doc, err := s.client.Document(ctx, s.opts.Site.CardUrl(id, locale))
		if err != nil {
			s.tel.ReportDebug("exists check failed", id, locale, err)
			errs = append(errs, fmt.Errorf("%s: %w", locale, err))
			continue
		}
		if htmlutil.Text(doc.Find("#cardname h1")) != "" {
			return true, nil
		}
	}
	if len(errs) == len(s.primary) && len(errs) > 0 {
		err := errors.Join(errs...)
		s.tel.ReportWarning(report_card_exists, err, id)
		return false, err
	}
	return false, nil
}
