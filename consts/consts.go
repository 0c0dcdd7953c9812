// Package consts holds names and build metadata shared across passportview.
package consts

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ServiceName identifies the service in traces, token issuers and metrics
const ServiceName = "passportview"

// Export formats served by GET /passports/{number}/export
const (
	ExportFormatHTML = "html"
	ExportFormatJSON = "json"
	ExportFormatPDF  = "pdf"
)

// Set via -ldflags at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// BuildInfo formats the build metadata for the version command
func BuildInfo() string {
	return fmt.Sprintf("PassportView %s\n  Build Time: %s\n  Git Commit: %s", Version, BuildTime, GitCommit)
}

// startedAtNano is zero until serve starts
var startedAtNano atomic.Int64

// MarkStarted records when serve started; later calls are ignored
func MarkStarted(t time.Time) {
	startedAtNano.CompareAndSwap(0, t.UnixNano())
}

// StartedAt returns the serve start time, zero before MarkStarted
func StartedAt() time.Time {
	ns := startedAtNano.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Uptime is the time since serve started, zero before MarkStarted
func Uptime() time.Duration {
	started := StartedAt()
	if started.IsZero() {
		return 0
	}
	return time.Since(started)
}
