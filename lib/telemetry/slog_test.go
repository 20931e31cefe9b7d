package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitHandler(t *testing.T) {
	var info, problem bytes.Buffer
	logger := slog.New(NewSplitHandler(&info, &problem, false))

	logger.Debug("hidden")
	logger.Info("no data found", "card", 4007)
	logger.Warn("untranslated", "value", "LIGHT")
	logger.With("locale", "fr").Error("broken component")

	require.NotContains(t, info.String(), "hidden")
	require.Contains(t, info.String(), "no data found")
	require.Contains(t, info.String(), "card=4007")
	require.NotContains(t, info.String(), "untranslated")

	require.Contains(t, problem.String(), "untranslated")
	require.Contains(t, problem.String(), "broken component")
	require.Contains(t, problem.String(), "locale=fr")
	require.NotContains(t, problem.String(), "no data found")
}

func TestSplitHandlerVerbose(t *testing.T) {
	var info, problem bytes.Buffer
	logger := slog.New(NewSplitHandler(&info, &problem, true))
	logger.Debug("start request", "url", "/yugiohdb/card_search.action")
	require.Contains(t, info.String(), "start request")
	require.Empty(t, problem.String())
}
