// Package pipeline sequences one client generation run: route table, type
// analysis, schema collection, client emission and the module write.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/sdkgen"
)

// Run is the state of one generation run. The coordinator owns it while the
// run is in progress and hands it back read-only when the run ends.
type Run struct {
	ID        string
	StartedAt time.Time

	Routes      []analyzer.EnrichedRoute
	Schemas     []sdkgen.SchemaRecord
	Diagnostics *diagnostic.Collector
	Module      *sdkgen.GeneratedModule

	// OutputPath is where the module was (or would be) written.
	OutputPath string
	// Written is set once the sink accepted the module; Changed when that
	// replaced different content.
	Written bool
	Changed bool
	// Digest is the SHA-256 of the module text.
	Digest string

	Timings Timings
}

// Timings collects the duration of each run stage.
type Timings struct {
	RouteTable time.Duration
	Session    time.Duration
	Routes     time.Duration
	Schemas    time.Duration
	Emit       time.Duration
	Write      time.Duration
	Total      time.Duration
}

// Print writes the timing breakdown to w.
func (t *Timings) Print(w io.Writer) {
	fmt.Fprintf(w, "\n--- timing ---\n")
	fmt.Fprintf(w, "  route table:   %s\n", t.RouteTable.Round(time.Millisecond))
	fmt.Fprintf(w, "  session:       %s\n", t.Session.Round(time.Millisecond))
	fmt.Fprintf(w, "  routes:        %s\n", t.Routes.Round(time.Millisecond))
	fmt.Fprintf(w, "  schemas:       %s\n", t.Schemas.Round(time.Millisecond))
	fmt.Fprintf(w, "  emit:          %s\n", t.Emit.Round(time.Millisecond))
	fmt.Fprintf(w, "  write:         %s\n", t.Write.Round(time.Millisecond))
	fmt.Fprintf(w, "  total:         %s\n", t.Total.Round(time.Millisecond))
}

// CheckResult reports whether the module on disk matches a fresh run.
type CheckResult struct {
	Run *Run
	// UpToDate ignores the generation timestamp.
	UpToDate bool
	// Missing is set when no module exists yet.
	Missing bool
}
