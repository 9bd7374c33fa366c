package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry describes the outcome of one instrument download.
type Entry struct {
	Contract   string `json:"contract"`
	Timeframe  string `json:"timeframe"`
	Path       string `json:"path,omitempty"`
	Rows       int    `json:"rows"`
	Added      int    `json:"added"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Summary is the top level shape of the report file. A Snapshot taken while
// the run is still going uses the same shape, with FinishedAt meaning
// "as of".
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Planned    int       `json:"planned"`
	Contracts  int       `json:"contracts"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	TotalRows  int       `json:"total_rows"`
	TotalAdded int       `json:"total_added"`
	Entries    []Entry   `json:"entries"`
}

// Generator accumulates per-instrument outcomes for one run and writes
// them as a single JSON report file.
type Generator struct {
	runID     string
	startedAt time.Time

	mu      sync.Mutex
	planned int
	entries []Entry
}

// NewGenerator returns a generator with a fresh run id.
func NewGenerator() *Generator {
	return &Generator{
		runID:     uuid.NewString(),
		startedAt: time.Now().UTC(),
	}
}

// RunID returns the identifier shared between the report file and run logs.
func (g *Generator) RunID() string {
	return g.runID
}

// SetPlanned records how many contracts the run intends to process.
func (g *Generator) SetPlanned(n int) {
	g.mu.Lock()
	g.planned = n
	g.mu.Unlock()
}

// Add records the outcome of one instrument.
func (g *Generator) Add(e Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, e)
}

// Snapshot returns the report as it stands, for live progress displays.
func (g *Generator) Snapshot() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.summaryLocked()
}

func (g *Generator) summaryLocked() Summary {
	summary := Summary{
		RunID:      g.runID,
		StartedAt:  g.startedAt,
		FinishedAt: time.Now().UTC(),
		Planned:    g.planned,
		Contracts:  len(g.entries),
		Entries:    append([]Entry(nil), g.entries...),
	}
	for _, e := range g.entries {
		if e.Skipped || e.Error != "" {
			summary.Skipped++
			continue
		}
		summary.Succeeded++
		summary.TotalRows += e.Rows
		summary.TotalAdded += e.Added
	}
	return summary
}

// Write renders the accumulated report under dir and returns the file path.
func (g *Generator) Write(dir string) (string, error) {
	g.mu.Lock()
	summary := g.summaryLocked()
	g.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("finflow-run-%s.json", g.runID[:8]))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
