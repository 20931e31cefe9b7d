package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"superdb/internal/telemetry"
	"superdb/internal/ygodb"
	"superdb/lib/fetch"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_set_list   = "list"
	report_set_entry  = "list-entry"
	report_set_detail = "detail"
	report_set_store  = "store"
)

// SetStore is where the set scanner keeps what it found.
type SetStore interface {
	SetExists(ctx context.Context, id, locale string) (bool, error)
	InsertOrReplaceSetDetails(ctx context.Context, link ygodb.SetLink, page ygodb.SetPage) error
}

type SetScannerOptions struct {
	Site        ygodb.Site
	Locales     []string
	StopOnError bool
}

type SetStats struct {
	Stored  int
	Skipped int
	Errors  int
}

// SetScanner stores the details of every set of every locale that is not
// stored yet.
type SetScanner struct {
	client fetch.Client
	store  SetStore
	tel    telemetry.API
	opts   SetScannerOptions
}

func NewSetScanner(client fetch.Client, store SetStore, opts SetScannerOptions, tel telemetry.API) *SetScanner {
	if len(opts.Locales) == 0 {
		opts.Locales = ygodb.Locales
	}
	if opts.Site.BaseUrl == "" {
		opts.Site = ygodb.NewSite(ygodb.DefaultBaseUrl)
	}
	return &SetScanner{
		client: client,
		store:  store,
		tel:    telemetry.NewScopedAPI("set_scanner", tel),
		opts:   opts,
	}
}

func (s *SetScanner) fail(ctx context.Context, stats *SetStats, id string, err error, params ...any) error {
	stats.Errors++
	countError(ctx, "set")
	s.tel.ReportBroken(id, append([]any{err}, params...)...)
	if s.opts.StopOnError {
		return stopped(err, "%s %v", id, params)
	}
	return nil
}

func (s *SetScanner) Run(ctx context.Context) (SetStats, error) {
	ctx, span := tracer.Start(ctx, "SetScanner.Run")
	defer span.End()

	stats := SetStats{}
	for _, locale := range s.opts.Locales {
		err := s.scanLocale(ctx, locale, &stats)
		if err != nil {
			return stats, err
		}
	}
	span.SetAttributes(
		attribute.Int("stored", stats.Stored),
		attribute.Int("skipped", stats.Skipped),
		attribute.Int("errors", stats.Errors),
	)
	return stats, nil
}

func (s *SetScanner) scanLocale(ctx context.Context, locale string, stats *SetStats) error {
	link := s.opts.Site.SetListUrl(locale)
	doc, err := s.client.Document(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.fail(ctx, stats, report_set_list, err, locale, link)
	}

	links, err := ygodb.ExtractSetLinks(doc, s.opts.Site, locale)
	if err != nil {
		s.tel.ReportWarning(report_set_entry, err, locale)
	}
	slog.InfoContext(ctx, "scanning sets", "locale", locale, "sets", len(links))

	for _, set := range links {
		exists, err := s.store.SetExists(ctx, set.ID, locale)
		if err != nil {
			return err
		}
		if exists {
			stats.Skipped++
			s.tel.ReportDebug("set already stored", set.ID, locale)
			continue
		}
		err = s.scanSet(ctx, set, stats)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SetScanner) scanSet(ctx context.Context, set ygodb.SetLink, stats *SetStats) error {
	ctx, span := tracer.Start(ctx, "SetScanner.scanSet")
	defer span.End()
	span.SetAttributes(
		attribute.String("id", set.ID),
		attribute.String("locale", set.Locale),
	)

	doc, err := s.client.Document(ctx, set.Url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.fail(ctx, stats, report_set_detail, err, set.ID, set.Locale, set.Url)
	}
	page, err := ygodb.ExtractSetPage(doc, set.Locale)
	if err != nil {
		return s.fail(ctx, stats, report_set_detail, err, set.ID, set.Locale, set.Url)
	}
	if page.ReleaseDate == "" && page.ReleaseDateText != "" {
		s.tel.ReportWarning(
			report_set_detail,
			fmt.Errorf("unreadable release date %q", page.ReleaseDateText),
			set.ID, set.Locale,
		)
	}

	err = s.store.InsertOrReplaceSetDetails(ctx, set, page)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return s.fail(ctx, stats, report_set_store, err, set.ID, set.Locale)
	}
	stats.Stored++
	s.tel.ReportDebug("stored set", set.ID, set.Locale, len(page.CardIDs))
	return nil
}
