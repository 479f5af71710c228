// Package dataset loads the OWID CO₂ emissions CSV and caches the
// filtered result for the life of the process.
package dataset

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ecolyze/ecolyze/internal/fetcher"
	"github.com/ecolyze/ecolyze/internal/model"
)

// Tracked CSV columns, resolved from the header row by name.
const (
	colCountry    = "country"
	colYear       = "year"
	colCO2        = "co2"
	colPopulation = "population"
)

// Loader produces the in-memory emissions table.
type Loader interface {
	// Load returns the filtered emissions records, fetching the remote
	// CSV at most once per process. Concurrent callers share a single
	// in-flight fetch. Errors are not cached.
	Load(ctx context.Context) ([]model.EmissionRecord, error)

	// Invalidate clears the cache so the next Load refetches.
	Invalidate()
}

// Options configures the CSV loader.
type Options struct {
	URL     string
	MinYear int
}

// CSVLoader implements Loader over an HTTP CSV source.
type CSVLoader struct {
	opts    Options
	fetcher fetcher.Fetcher

	group  singleflight.Group
	mu     sync.RWMutex
	cached []model.EmissionRecord
}

// New creates a CSVLoader.
func New(f fetcher.Fetcher, opts Options) *CSVLoader {
	return &CSVLoader{opts: opts, fetcher: f}
}

// Load implements Loader.
func (l *CSVLoader) Load(ctx context.Context) ([]model.EmissionRecord, error) {
	l.mu.RLock()
	if l.cached != nil {
		defer l.mu.RUnlock()
		return l.cached, nil
	}
	l.mu.RUnlock()

	// The cache has a single fixed key: one dataset per process.
	v, err, _ := l.group.Do("dataset", func() (any, error) {
		records, err := l.fetch(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cached = records
		l.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.EmissionRecord), nil
}

// Invalidate implements Loader.
func (l *CSVLoader) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

func (l *CSVLoader) fetch(ctx context.Context) ([]model.EmissionRecord, error) {
	start := time.Now()
	body, err := l.fetcher.Download(ctx, l.opts.URL)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: download")
	}
	defer body.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	var (
		idx     map[string]int
		records []model.EmissionRecord
		skipped int
	)

	for row := range rowCh {
		if idx == nil {
			header := <-headerCh
			idx, err = resolveColumns(header)
			if err != nil {
				// Drain so the parser goroutine can exit.
				for range rowCh {
				}
				<-errCh
				return nil, err
			}
		}

		rec, ok := parseRow(row, idx, l.opts.MinYear)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "dataset: parse")
	}
	if idx == nil {
		return nil, eris.Errorf("dataset: %s returned no rows", l.opts.URL)
	}

	zap.L().Info("dataset loaded",
		zap.String("url", l.opts.URL),
		zap.Int("rows", len(records)),
		zap.Int("skipped", skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

// resolveColumns maps the tracked column names to their positions in
// the header row.
func resolveColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, 4)
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case colCountry, colYear, colCO2, colPopulation:
			idx[strings.ToLower(strings.TrimSpace(name))] = i
		}
	}
	for _, name := range []string{colCountry, colYear, colCO2, colPopulation} {
		if _, ok := idx[name]; !ok {
			return nil, eris.Errorf("dataset: column %q not found in header", name)
		}
	}
	return idx, nil
}

// parseRow converts one CSV row into an EmissionRecord. Rows with a
// missing or unparseable tracked value, or a year below minYear, are
// rejected.
func parseRow(row []string, idx map[string]int, minYear int) (model.EmissionRecord, bool) {
	field := func(name string) (string, bool) {
		i := idx[name]
		if i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		return v, v != ""
	}

	country, ok := field(colCountry)
	if !ok {
		return model.EmissionRecord{}, false
	}
	yearStr, ok := field(colYear)
	if !ok {
		return model.EmissionRecord{}, false
	}
	co2Str, ok := field(colCO2)
	if !ok {
		return model.EmissionRecord{}, false
	}
	popStr, ok := field(colPopulation)
	if !ok {
		return model.EmissionRecord{}, false
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < minYear {
		return model.EmissionRecord{}, false
	}
	co2, err := strconv.ParseFloat(co2Str, 64)
	if err != nil {
		return model.EmissionRecord{}, false
	}
	// OWID serializes population as a float (e.g. "1.417173e+09").
	popF, err := strconv.ParseFloat(popStr, 64)
	if err != nil {
		return model.EmissionRecord{}, false
	}

	return model.EmissionRecord{
		Country:    country,
		Year:       year,
		CO2:        co2,
		Population: int64(popF),
	}, true
}
