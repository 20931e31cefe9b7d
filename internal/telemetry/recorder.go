package telemetry

import (
	"strings"
	"sync"
)

type Report struct {
	Id     string
	Params []any
}

// Recorder keeps every broken and warning report in memory and forwards
// everything to an inner API. It backs the run statistics and test
// assertions.
type Recorder struct {
	inner API

	mutex    sync.Mutex
	broken   []Report
	warnings []Report
}

func NewRecorder(inner API) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mutex.Lock()
	r.broken = append(r.broken, Report{Id: id, Params: params})
	r.mutex.Unlock()
	if r.inner != nil {
		r.inner.ReportBroken(id, params...)
	}
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mutex.Lock()
	r.warnings = append(r.warnings, Report{Id: id, Params: params})
	r.mutex.Unlock()
	if r.inner != nil {
		r.inner.ReportWarning(id, params...)
	}
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	if r.inner != nil {
		r.inner.ReportDebug(msg, params...)
	}
}

func (r *Recorder) ReportCount(id string, count int64) {
	if r.inner != nil {
		r.inner.ReportCount(id, count)
	}
}

func (r *Recorder) Broken() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Report(nil), r.broken...)
}

func (r *Recorder) Warnings() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Report(nil), r.warnings...)
}

// CountBroken returns the number of broken reports whose id ends with the
// given suffix, an empty suffix counts everything.
func (r *Recorder) CountBroken(suffix string) int {
	return countSuffix(r.Broken(), suffix)
}

func (r *Recorder) CountWarnings(suffix string) int {
	return countSuffix(r.Warnings(), suffix)
}

func countSuffix(reports []Report, suffix string) int {
	count := 0
	for _, report := range reports {
		if strings.HasSuffix(report.Id, suffix) {
			count++
		}
	}
	return count
}
