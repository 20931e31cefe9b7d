package telemetry

import (
	"sync"
	"testing"
)

var testSlogOnce sync.Once

// SetupForTesting configures verbose logging for a test binary. Exporters
// are never started in tests, spans and metrics go to the otel no-op
// providers.
func SetupForTesting(t testing.TB) func() {
	t.Helper()
	testSlogOnce.Do(func() {
		InitSlog(true)
	})
	return func() {}
}
