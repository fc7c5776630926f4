package services

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"pizza-dashboard/internal/aggregate"
	"pizza-dashboard/internal/filter"
	"pizza-dashboard/internal/models"
	"pizza-dashboard/internal/store"
)

const (
	cacheVersion    = "v2"
	defaultCacheDir = ".cache"
	defaultMemoSize = 128
)

type Options struct {
	// CacheDir holds parsed snapshots of the source CSV. Empty disables
	// the snapshot cache.
	CacheDir    string
	SkipInvalid bool
	MemoSize    int
	Dashboard   aggregate.Options
}

func DefaultOptions() Options {
	return Options{
		CacheDir:  defaultCacheDir,
		MemoSize:  defaultMemoSize,
		Dashboard: aggregate.DefaultOptions(),
	}
}

// snapshot is the on-disk form of a parsed dataset.
type snapshot struct {
	Source  string
	ModTime time.Time
	Skipped int
	Rows    []models.Transaction
}

// Analytics owns the loaded transaction set and serves filtered
// dashboards from a bounded memo.
type Analytics struct {
	mu         sync.RWMutex
	set        *store.TransactionSet
	report     store.LoadReport
	source     string
	loadedAt   time.Time
	generation uint64

	memo   *lru.Cache[string, *aggregate.Dashboard]
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64

	opts   Options
	logger *slog.Logger
}

func NewAnalytics(opts Options) *Analytics {
	if opts.MemoSize <= 0 {
		opts.MemoSize = defaultMemoSize
	}
	// lru.New only fails for a non-positive size.
	memo, _ := lru.New[string, *aggregate.Dashboard](opts.MemoSize)
	return &Analytics{
		set:    store.NewTransactionSet(nil),
		memo:   memo,
		opts:   opts,
		logger: slog.Default(),
	}
}

// SetData replaces the dataset with rows.
func (a *Analytics) SetData(rows []models.Transaction) {
	a.install(store.NewTransactionSet(rows), store.LoadReport{Rows: len(rows)}, "memory")
}

func (a *Analytics) install(set *store.TransactionSet, report store.LoadReport, source string) {
	a.mu.Lock()
	a.set = set
	a.report = report
	a.source = source
	a.loadedAt = time.Now()
	a.generation++
	a.mu.Unlock()

	a.memo.Purge()
}

// LoadFromCSV parses the file at path, reusing a snapshot when the file
// has not changed since it was taken.
func (a *Analytics) LoadFromCSV(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &store.DataLoadError{Path: path, Reason: "stat file", Err: err}
	}

	if snap, err := a.loadSnapshot(path); err == nil && a.reusable(snap, info.ModTime()) {
		a.install(store.NewTransactionSet(snap.Rows), store.LoadReport{Rows: len(snap.Rows), Skipped: snap.Skipped}, path)
		a.logger.Info("loaded from cache", "records", len(snap.Rows))
		return nil
	}

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", path)

	set, report, err := store.Load(ctx, path, store.LoadOptions{SkipInvalid: a.opts.SkipInvalid}, a.logger)
	if err != nil {
		return err
	}
	a.install(set, report, path)

	if err := a.saveSnapshot(path, info.ModTime(), set, report); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	a.logger.Info("csv processing complete",
		"records", report.Rows,
		"skipped", report.Skipped,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(report.Rows)/duration.Seconds()))
	return nil
}

// reusable reports whether snap can stand in for parsing the source. A
// snapshot that dropped invalid rows never satisfies a strict load.
func (a *Analytics) reusable(snap *snapshot, modTime time.Time) bool {
	if !snap.ModTime.Equal(modTime) {
		return false
	}
	return snap.Skipped == 0 || a.opts.SkipInvalid
}

func (a *Analytics) snapshotFile(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(abs)
	return filepath.Join(a.opts.CacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (a *Analytics) saveSnapshot(path string, modTime time.Time, set *store.TransactionSet, report store.LoadReport) error {
	if a.opts.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.opts.CacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.CreateTemp(a.opts.CacheDir, "snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmp := file.Name()

	err = gob.NewEncoder(file).Encode(snapshot{
		Source:  path,
		ModTime: modTime,
		Skipped: report.Skipped,
		Rows:    set.Rows(),
	})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := os.Rename(tmp, a.snapshotFile(path)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install snapshot: %w", err)
	}
	return nil
}

func (a *Analytics) loadSnapshot(path string) (*snapshot, error) {
	if a.opts.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(a.snapshotFile(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	if len(snap.Rows) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}
	return &snap, nil
}

func (a *Analytics) current() (*store.TransactionSet, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.set, a.generation
}

// Set returns the loaded transaction set.
func (a *Analytics) Set() *store.TransactionSet {
	set, _ := a.current()
	return set
}

// Defaults selects every observed month, category and size.
func (a *Analytics) Defaults() filter.Criteria {
	return filter.All(a.Set())
}

func (a *Analytics) Options() aggregate.Options {
	return a.opts.Dashboard
}

func (a *Analytics) View(c filter.Criteria) *store.View {
	return filter.Apply(a.Set(), c)
}

// Dashboard returns every aggregate for c. Results are memoized per
// dataset generation and criteria; concurrent callers for the same key
// share one computation.
func (a *Analytics) Dashboard(c filter.Criteria, opts aggregate.Options) *aggregate.Dashboard {
	set, gen := a.current()
	key := memoKey(gen, c, opts)

	if d, ok := a.memo.Get(key); ok {
		a.hits.Add(1)
		return d
	}

	v, _, _ := a.group.Do(key, func() (any, error) {
		if d, ok := a.memo.Get(key); ok {
			return d, nil
		}
		a.misses.Add(1)
		d := aggregate.Build(filter.Apply(set, c), opts)
		a.memo.Add(key, d)
		return d, nil
	})
	return v.(*aggregate.Dashboard)
}

func memoKey(gen uint64, c filter.Criteria, opts aggregate.Options) string {
	return strings.Join([]string{
		strconv.FormatUint(gen, 10),
		c.Key(),
		strconv.Itoa(opts.TopN),
		strconv.Itoa(opts.IngredientTopN),
	}, "|")
}

// FilterOptions lists the values a selection may contain.
type FilterOptions struct {
	Months     []string `json:"months"`
	Categories []string `json:"categories"`
	Sizes      []string `json:"sizes"`
}

func (a *Analytics) Filters() FilterOptions {
	sel := filter.SelectionOf(a.Defaults())
	return FilterOptions{
		Months:     sel.Months,
		Categories: sel.Categories,
		Sizes:      sel.Sizes,
	}
}

// Stats reports load and memo counters for monitoring.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":   a.report.Rows,
		"skipped_rows":   a.report.Skipped,
		"source":         a.source,
		"last_processed": a.loadedAt,
		"generation":     a.generation,
		"categories":     len(a.set.Categories()),
		"sizes":          len(a.set.Sizes()),
		"months":         len(a.set.Months()),
		"memo_entries":   a.memo.Len(),
		"memo_hits":      a.hits.Load(),
		"memo_misses":    a.misses.Load(),
	}
}
