package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/opportunity"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

// DefaultProgressEvery is the row cadence of progress callbacks.
const DefaultProgressEvery = 100

const defaultSourceFile = "import"

// Progress is reported to Options.OnProgress while a batch is parsed.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Options control one ParseBatch call.
type Options struct {
	// Limit caps the number of data lines processed. Zero means all.
	Limit int
	// Offset skips data lines before processing, for resuming a limited parse.
	Offset int
	// ProgressEvery overrides the engine's progress cadence when positive.
	ProgressEvery int
	// OnProgress is called synchronously every ProgressEvery rows and once at the end.
	OnProgress func(Progress)
	SourceFile string
	// IDScope is added to synthesized ids so rows of different files that
	// share a name stay distinct. Empty means "<source>_<row>".
	IDScope string
	Tenant  string
	// Now pins the clock used for years owned. Zero means time.Now.
	Now time.Time
}

// Result is the output of one ParseBatch call.
type Result struct {
	Records        []models.CanonicalProperty `json:"records"`
	Stats          models.ImportStats         `json:"stats"`
	Headers        []string                   `json:"headers"`
	Roles          *schema.ColumnRoleMap      `json:"roles"`
	HasCoordinates bool                       `json:"has_coordinates"`
	// TotalInBatch is the number of data lines in the whole input.
	TotalInBatch int `json:"total_in_batch"`
	// NextOffset is where a limited parse should resume, or 0 when done.
	NextOffset int      `json:"next_offset"`
	Warnings   []string `json:"warnings"`
}

// Engine turns CSV text into canonical property records. It holds only
// configuration; per-batch state lives inside each ParseBatch call, so one
// Engine may serve concurrent batches.
type Engine struct {
	patterns      *schema.ResolvedPatterns
	progressEvery int
}

// NewEngine creates an engine that detects roles with patterns, or with the
// built-in patterns when nil.
func NewEngine(patterns *schema.ResolvedPatterns, progressEvery int) *Engine {
	if patterns == nil {
		patterns = schema.Defaults()
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &Engine{patterns: patterns, progressEvery: progressEvery}
}

// WithPatterns returns a copy of the engine using different role patterns.
func (e *Engine) WithPatterns(patterns *schema.ResolvedPatterns) *Engine {
	return NewEngine(patterns, e.progressEvery)
}

// ParseReader reads r fully and parses it with ParseBatch.
func (e *Engine) ParseReader(r io.Reader, roles *schema.ColumnRoleMap, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return e.ParseBatch(string(data), roles, opts)
}

// ParseBatch parses csvText. The first non-blank line holds the headers and
// blank lines are skipped. When roles is nil they are detected from the
// headers. Rows whose cell count differs from the header count are counted
// as rejected. Data problems never produce an error; an error means roles
// does not fit the headers.
func (e *Engine) ParseBatch(csvText string, roles *schema.ColumnRoleMap, opts Options) (*Result, error) {
	lines := splitLines(strings.TrimPrefix(csvText, "\ufeff"))

	var headers []string
	data := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if headers == nil {
			headers = ParseLine(strings.TrimPrefix(line, "\ufeff"))
			continue
		}
		data = append(data, line)
	}

	if roles == nil {
		roles = e.patterns.Detect(headers)
	}
	warnings, roleErrors := schema.ValidateRoles(headers, roles)
	if headers != nil && len(roleErrors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRoleIndexOutOfRange, strings.Join(roleErrors, "; "))
	}

	result := &Result{
		Records:        make([]models.CanonicalProperty, 0),
		Headers:        headers,
		Roles:          roles,
		HasCoordinates: roles.HasCoordinates(),
		TotalInBatch:   len(data),
		Warnings:       make([]string, 0),
	}
	if headers == nil {
		return result, nil
	}
	result.Warnings = append(result.Warnings, warnings...)

	window := batchWindow(data, opts.Offset, opts.Limit)
	start := clamp(opts.Offset, 0, len(data))
	if end := start + len(window); end < len(data) {
		result.NextOffset = end
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	every := opts.ProgressEvery
	if every <= 0 {
		every = e.progressEvery
	}

	resolver := NewCollisionResolver()
	ids := make(map[string]bool, len(window))
	rejected := 0

	for i, line := range window {
		rowIndex := start + i
		cells := ParseLine(line)
		if len(cells) != len(headers) {
			rejected++
		} else {
			record, err := ExtractRecord(cells, roles, rowIndex, opts.SourceFile, opts.IDScope)
			if err != nil {
				// rows have exactly len(headers) cells, which ValidateRoles checked
				return nil, err
			}
			record.ID = uniqueID(ids, record.ID, rowIndex)
			ids[record.ID] = true
			record.Tenant = opts.Tenant

			opportunity.Derive(&record, now)

			if record.Coordinates.Valid() {
				lat, lng, moved := resolver.Resolve(*record.Coordinates.Lat, *record.Coordinates.Lng)
				record.Coordinates.Lat, record.Coordinates.Lng = &lat, &lng
				record.CoordinatesAdjusted = moved
			}

			result.Records = append(result.Records, record)
		}

		current := i + 1
		if opts.OnProgress != nil && (current%every == 0 || current == len(window)) {
			opts.OnProgress(Progress{
				Current: current,
				Total:   len(window),
				Percent: current * 100 / len(window),
			})
		}
	}

	stats := opportunity.ComputeStats(result.Records)
	stats.TotalRows = len(window)
	stats.Rejected = rejected
	stats.CollisionsResolved = resolver.Resolved()
	result.Stats = stats

	if rejected > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d of %d rows rejected: cell count did not match the %d header columns", rejected, len(window), len(headers)))
	}
	return result, nil
}

// IsEngineError reports whether err signals misuse of the engine rather than
// bad input data.
func IsEngineError(err error) bool {
	return errors.Is(err, ErrNoRoleMap) || errors.Is(err, ErrRoleIndexOutOfRange)
}

// uniqueID returns id, or id suffixed with the row index when it is taken.
// Suffixes climb from the row index until an unused one is found.
func uniqueID(taken map[string]bool, id string, rowIndex int) string {
	if !taken[id] {
		return id
	}
	for n := rowIndex; ; n++ {
		candidate := id + "_" + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func batchWindow(data []string, offset, limit int) []string {
	start := clamp(offset, 0, len(data))
	window := data[start:]
	if limit > 0 && len(window) > limit {
		window = window[:limit]
	}
	return window
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
