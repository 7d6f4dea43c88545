// Package dues fetches pending payments for a calendar month and caches
// them by the month's date range.
package dues

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gymdash/internal/cache"
	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// Range is an inclusive span of days.
type Range struct {
	From core.Date
	To   core.Date
}

// MonthRange returns the first through last day of month.
func MonthRange(month core.Date) Range {
	first := core.NewDate(month.Year(), int(month.Month()), 1)
	return Range{From: first, To: first.AddDays(first.DaysInMonth() - 1)}
}

// Key identifies the range in the cache.
func (r Range) Key() string {
	return r.From.Key() + ".." + r.To.Key()
}

// Result is the outcome of a fetch. On failure Err is set and Payments is
// empty; callers render an empty calendar rather than failing.
type Result struct {
	Range    Range
	Payments []core.PendingPayment
	Err      error
	Cached   bool
}

// Failed reports whether the fetch failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Options configure a Fetcher.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *applog.Logger
}

// Fetcher loads due payments through a Lister. Identical concurrent requests
// share one call. Results are kept until the TTL passes or the range is
// invalidated; nothing is revalidated in the background.
type Fetcher struct {
	lister Lister
	cache  *cache.LRUCache[[]core.PendingPayment]
	group  singleflight.Group
	logger *applog.Logger

	mu       sync.Mutex
	epoch    uint64
	gen      map[string]uint64
	inflight map[string]int
}

// NewFetcher creates a fetcher backed by lister.
func NewFetcher(lister Lister, opts Options) *Fetcher {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 24
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	return &Fetcher{
		lister:   lister,
		cache:    cache.NewLRUCache[[]core.PendingPayment](opts.CacheSize, opts.CacheTTL),
		logger:   opts.Logger.WithComponent(applog.ComponentDues),
		gen:      make(map[string]uint64),
		inflight: make(map[string]int),
	}
}

// Cache exposes the underlying cache so it can be registered for cleanup.
func (f *Fetcher) Cache() *cache.LRUCache[[]core.PendingPayment] {
	return f.cache
}

// Month returns the payments due in month's range.
func (f *Fetcher) Month(ctx context.Context, month core.Date) Result {
	return f.Fetch(ctx, MonthRange(month))
}

// Fetch returns the payments due in r, from cache when present.
func (f *Fetcher) Fetch(ctx context.Context, r Range) Result {
	if list, ok := f.cache.Get(r.Key()); ok {
		return Result{Range: r, Payments: slices.Clone(list), Cached: true}
	}
	return f.load(ctx, r)
}

// Refresh drops the cached entry for month and loads it again. A fetch for
// the same range that started before the refresh can no longer populate the
// cache.
func (f *Fetcher) Refresh(ctx context.Context, month core.Date) Result {
	r := MonthRange(month)
	f.Invalidate(r)
	return f.load(ctx, r)
}

// Invalidate drops the cached entry for r.
func (f *Fetcher) Invalidate(r Range) {
	key := r.Key()
	f.mu.Lock()
	f.gen[key]++
	f.cache.Delete(key)
	f.mu.Unlock()
}

// InvalidateAll drops every cached range. Used after a mutation whose
// effect on other months is unknown, such as scheduling the next payment.
func (f *Fetcher) InvalidateAll() {
	f.mu.Lock()
	f.epoch++
	f.cache.Purge()
	f.mu.Unlock()
}

// Loading reports whether a fetch for month is in flight.
func (f *Fetcher) Loading(month core.Date) bool {
	key := MonthRange(month).Key()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight[key] > 0
}

func (f *Fetcher) token(key string) string {
	return fmt.Sprintf("%s#%d.%d", key, f.epoch, f.gen[key])
}

func (f *Fetcher) load(ctx context.Context, r Range) Result {
	key := r.Key()

	f.mu.Lock()
	token := f.token(key)
	f.inflight[key]++
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		if f.inflight[key]--; f.inflight[key] <= 0 {
			delete(f.inflight, key)
		}
		f.mu.Unlock()
	}()

	v, err, shared := f.group.Do(token, func() (any, error) {
		list, err := f.lister.ListDue(context.WithoutCancel(ctx), r.From, r.To)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		if f.token(key) == token {
			f.cache.Set(key, list)
		}
		f.mu.Unlock()
		return list, nil
	})
	if err != nil {
		f.logger.WarnContext(ctx, "Due payments fetch failed",
			applog.FieldRangeFrom, r.From.Key(),
			applog.FieldRangeTo, r.To.Key(),
			applog.FieldError, err)
		return Result{Range: r, Payments: []core.PendingPayment{}, Err: err}
	}

	list := v.([]core.PendingPayment)
	f.logger.DebugContext(ctx, "Due payments fetched",
		applog.FieldRangeFrom, r.From.Key(),
		applog.FieldRangeTo, r.To.Key(),
		applog.FieldCount, len(list),
		"shared", shared)
	return Result{Range: r, Payments: slices.Clone(list)}
}
