// Package scan walks the card database: card ids in order, the product
// listing of every locale and the banlist history of every region.
package scan

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrStopped wraps the failure that aborted a scan running with
// StopOnError.
var ErrStopped = errors.New("scan stopped")

func stopped(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrStopped, fmt.Sprintf(format, args...), cause)
}

var tracer = otel.Tracer("superdb/scan")
var meter = otel.Meter("superdb/scan")

var scannedCounter, _ = meter.Int64Counter(
	"superdb.cards.scanned",
	metric.WithDescription("card ids that had a card"),
)
var missedCounter, _ = meter.Int64Counter(
	"superdb.cards.missed",
	metric.WithDescription("card ids without a card"),
)
var errorCounter, _ = meter.Int64Counter(
	"superdb.errors",
	metric.WithDescription("units of work that failed"),
)

func scannerAttribute(name string) attribute.KeyValue {
	return attribute.String("scanner", name)
}

func countError(ctx context.Context, scanner string) {
	errorCounter.Add(ctx, 1, metric.WithAttributes(scannerAttribute(scanner)))
}
