package telemetry

import (
	"log/slog"
	"strconv"
)

// SlogAPI writes reports to the default slog logger. Errors among the params
// are logged under "err", everything else by position as "arg0", "arg1"...
type SlogAPI struct{}

func reportAttrs(id string, params []any) []any {
	attrs := make([]any, 0, 2+len(params)*2)
	if id != "" {
		attrs = append(attrs, "report", id)
	}
	arg := 0
	for _, p := range params {
		if err, ok := p.(error); ok {
			attrs = append(attrs, slog.Any("err", err))
			continue
		}
		attrs = append(attrs, "arg"+strconv.Itoa(arg), p)
		arg++
	}
	return attrs
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("component broken", reportAttrs(id, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("needs a look", reportAttrs(id, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, reportAttrs("", params)...)
}

// ReportCount logs a point in time value, repeated counts are not summed.
func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "report", id, "value", count)
}
