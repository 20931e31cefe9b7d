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
	report_banlist_dates  = "dates"
	report_banlist_detail = "detail"
	report_banlist_store  = "store"
)

// BanlistStore is where the banlist scanner keeps what it found.
type BanlistStore interface {
	BanlistExists(ctx context.Context, date, region string) (bool, error)
	InsertBanlist(ctx context.Context, banlist ygodb.Banlist) (int64, error)
}

type BanlistScannerOptions struct {
	Site        ygodb.Site
	Scopes      []ygodb.BanlistScope
	StopOnError bool
}

type BanlistStats struct {
	Stored  int
	Skipped int
	Errors  int
}

// BanlistScanner stores every banlist of every region that is not stored
// yet. A banlist is only written once its page was read, a failed date is
// retried by the next run.
type BanlistScanner struct {
	client fetch.Client
	store  BanlistStore
	tel    telemetry.API
	opts   BanlistScannerOptions
}

func NewBanlistScanner(client fetch.Client, store BanlistStore, opts BanlistScannerOptions, tel telemetry.API) *BanlistScanner {
	if len(opts.Scopes) == 0 {
		opts.Scopes = ygodb.BanlistScopes
	}
	if opts.Site.BaseUrl == "" {
		opts.Site = ygodb.NewSite(ygodb.DefaultBaseUrl)
	}
	return &BanlistScanner{
		client: client,
		store:  store,
		tel:    telemetry.NewScopedAPI("banlist_scanner", tel),
		opts:   opts,
	}
}

func (s *BanlistScanner) fail(ctx context.Context, stats *BanlistStats, id string, err error, params ...any) error {
	stats.Errors++
	countError(ctx, "banlist")
	s.tel.ReportBroken(id, append([]any{err}, params...)...)
	if s.opts.StopOnError {
		return stopped(err, "%s %v", id, params)
	}
	return nil
}

func (s *BanlistScanner) Run(ctx context.Context) (BanlistStats, error) {
	ctx, span := tracer.Start(ctx, "BanlistScanner.Run")
	defer span.End()

	stats := BanlistStats{}
	for _, scope := range s.opts.Scopes {
		err := s.scanScope(ctx, scope, &stats)
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

func (s *BanlistScanner) scanScope(ctx context.Context, scope ygodb.BanlistScope, stats *BanlistStats) error {
	link := s.opts.Site.BanlistUrl(scope.Locale)
	doc, err := s.client.Document(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.fail(ctx, stats, report_banlist_dates, err, scope.Region, link)
	}

	dates := ygodb.ExtractBanlistDates(doc)
	if len(dates) == 0 {
		return s.fail(
			ctx, stats, report_banlist_dates,
			&ygodb.ExtractError{Page: "banlist", Reason: "no dates in the date selector"},
			scope.Region, link,
		)
	}
	slog.InfoContext(ctx, "scanning banlists", "region", scope.Region, "dates", len(dates))

	for _, date := range dates {
		exists, err := s.store.BanlistExists(ctx, date, scope.Region)
		if err != nil {
			return err
		}
		if exists {
			stats.Skipped++
			continue
		}
		err = s.scanDate(ctx, scope, date, stats)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BanlistScanner) scanDate(ctx context.Context, scope ygodb.BanlistScope, date string, stats *BanlistStats) error {
	ctx, span := tracer.Start(ctx, "BanlistScanner.scanDate")
	defer span.End()
	span.SetAttributes(
		attribute.String("region", scope.Region),
		attribute.String("date", date),
	)

	link := s.opts.Site.BanlistDateUrl(date, scope.Locale)
	doc, err := s.client.Document(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.fail(ctx, stats, report_banlist_detail, err, scope.Region, date, link)
	}

	page := ygodb.ExtractBanlistPage(doc)
	for _, bucket := range page.MissingBuckets {
		slog.InfoContext(ctx, "banlist has no section", "region", scope.Region, "date", date, "section", bucket)
	}
	if page.Malformed > 0 {
		s.tel.ReportWarning(
			report_banlist_detail,
			fmt.Errorf("%d entries without a card link", page.Malformed),
			scope.Region, date,
		)
	}

	_, err = s.store.InsertBanlist(ctx, ygodb.Banlist{
		Date:        date,
		Region:      scope.Region,
		Limitations: page.Limitations,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return s.fail(ctx, stats, report_banlist_store, err, scope.Region, date)
	}
	stats.Stored++
	s.tel.ReportDebug("stored banlist", scope.Region, date, len(page.Limitations))
	return nil
}
