package dues

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gymdash/internal/core"
)

type fakeLister struct {
	mu      sync.Mutex
	calls   atomic.Int32
	ranges  []Range
	data    []core.PendingPayment
	respond func(call int32) ([]core.PendingPayment, error)
}

func (f *fakeLister) ListDue(_ context.Context, from, to core.Date) ([]core.PendingPayment, error) {
	call := f.calls.Add(1)
	f.mu.Lock()
	f.ranges = append(f.ranges, Range{From: from, To: to})
	data, respond := f.data, f.respond
	f.mu.Unlock()

	if respond != nil {
		var err error
		if data, err = respond(call); err != nil {
			return nil, err
		}
	}
	var out []core.PendingPayment
	for _, p := range data {
		if !p.DueDate.Before(from) && !to.Before(p.DueDate) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLister) set(data []core.PendingPayment) {
	f.mu.Lock()
	f.data = data
	f.mu.Unlock()
}

func due(id string, y, m, d int) core.PendingPayment {
	return core.PendingPayment{ID: id, DueDate: core.NewDate(y, m, d), AmountCRC: 25000, Status: core.StatusPending}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		month    core.Date
		from, to string
	}{
		{core.NewDate(2025, 9, 17), "2025-09-01", "2025-09-30"},
		{core.NewDate(2024, 2, 1), "2024-02-01", "2024-02-29"},
		{core.NewDate(2025, 12, 31), "2025-12-01", "2025-12-31"},
	}
	for _, tt := range tests {
		r := MonthRange(tt.month)
		if r.From.Key() != tt.from || r.To.Key() != tt.to {
			t.Errorf("MonthRange(%s) = %s, want %s..%s", tt.month, r.Key(), tt.from, tt.to)
		}
	}
}

func TestFetcher_CachesByRange(t *testing.T) {
	lister := &fakeLister{data: []core.PendingPayment{due("a", 2025, 9, 13), due("b", 2025, 10, 2)}}
	f := NewFetcher(lister, Options{CacheTTL: time.Minute})
	ctx := context.Background()
	sept := core.NewDate(2025, 9, 1)

	first := f.Month(ctx, sept)
	if first.Failed() || len(first.Payments) != 1 || first.Cached {
		t.Fatalf("first fetch = %+v", first)
	}
	second := f.Month(ctx, core.NewDate(2025, 9, 20))
	if !second.Cached || len(second.Payments) != 1 {
		t.Fatalf("second fetch should hit cache, got %+v", second)
	}
	if n := lister.calls.Load(); n != 1 {
		t.Fatalf("lister called %d times, want 1", n)
	}

	oct := f.Month(ctx, core.NewDate(2025, 10, 1))
	if len(oct.Payments) != 1 || oct.Payments[0].ID != "b" {
		t.Fatalf("october = %+v", oct.Payments)
	}
	if n := lister.calls.Load(); n != 2 {
		t.Fatalf("month change must issue a new request, calls = %d", n)
	}
	if got := lister.ranges[1]; got.From.Key() != "2025-10-01" || got.To.Key() != "2025-10-31" {
		t.Fatalf("requested range = %s", got.Key())
	}
}

func TestFetcher_RefreshBypassesCache(t *testing.T) {
	lister := &fakeLister{data: []core.PendingPayment{due("a", 2025, 9, 13)}}
	f := NewFetcher(lister, Options{})
	ctx := context.Background()
	sept := core.NewDate(2025, 9, 1)

	f.Month(ctx, sept)
	lister.set(nil)

	res := f.Refresh(ctx, sept)
	if len(res.Payments) != 0 || res.Cached {
		t.Fatalf("refresh returned %+v", res)
	}
	if again := f.Month(ctx, sept); !again.Cached || len(again.Payments) != 0 {
		t.Fatalf("refreshed data should be cached, got %+v", again)
	}
	if n := lister.calls.Load(); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestFetcher_ErrorYieldsEmptyList(t *testing.T) {
	boom := errors.New("connection refused")
	lister := &fakeLister{respond: func(int32) ([]core.PendingPayment, error) { return nil, boom }}
	f := NewFetcher(lister, Options{})

	res := f.Month(context.Background(), core.NewDate(2025, 9, 1))
	if !errors.Is(res.Err, boom) {
		t.Fatalf("Err = %v, want %v", res.Err, boom)
	}
	if res.Payments == nil || len(res.Payments) != 0 {
		t.Fatalf("Payments = %#v, want empty", res.Payments)
	}

	// failures are not cached
	f.Month(context.Background(), core.NewDate(2025, 9, 1))
	if n := lister.calls.Load(); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestFetcher_DeduplicatesConcurrentRequests(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	data := []core.PendingPayment{due("a", 2025, 9, 13)}
	lister := &fakeLister{respond: func(int32) ([]core.PendingPayment, error) {
		started <- struct{}{}
		<-release
		return data, nil
	}}
	f := NewFetcher(lister, Options{})
	sept := core.NewDate(2025, 9, 1)

	var wg sync.WaitGroup
	results := make([]Result, 4)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = f.Month(context.Background(), sept)
	}()
	<-started
	if !f.Loading(sept) {
		t.Fatalf("Loading should be true while the request is in flight")
	}
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.Fetch(context.Background(), MonthRange(sept))
		}(i)
	}
	// give the followers a moment to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := lister.calls.Load(); n != 1 {
		t.Fatalf("lister called %d times, want 1", n)
	}
	for i, r := range results {
		if len(r.Payments) != 1 {
			t.Fatalf("result %d = %+v", i, r)
		}
	}
	if f.Loading(sept) {
		t.Fatalf("Loading should be false after completion")
	}
}

func TestFetcher_StaleFetchDoesNotOverwriteRefresh(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	lister := &fakeLister{respond: func(call int32) ([]core.PendingPayment, error) {
		if call == 1 {
			started <- struct{}{}
			<-release
			return []core.PendingPayment{due("old", 2025, 9, 13)}, nil
		}
		return []core.PendingPayment{due("new", 2025, 9, 13)}, nil
	}}
	f := NewFetcher(lister, Options{})
	sept := core.NewDate(2025, 9, 1)

	staleDone := make(chan Result, 1)
	go func() { staleDone <- f.Month(context.Background(), sept) }()
	<-started

	fresh := f.Refresh(context.Background(), sept)
	if len(fresh.Payments) != 1 || fresh.Payments[0].ID != "new" {
		t.Fatalf("refresh = %+v", fresh.Payments)
	}

	close(release)
	if stale := <-staleDone; stale.Payments[0].ID != "old" {
		t.Fatalf("parked call returned %+v", stale.Payments)
	}

	cached := f.Month(context.Background(), sept)
	if !cached.Cached || cached.Payments[0].ID != "new" {
		t.Fatalf("stale fetch overwrote refreshed data: %+v", cached)
	}
}

func TestFetcher_InvalidateAll(t *testing.T) {
	lister := &fakeLister{data: []core.PendingPayment{due("a", 2025, 9, 13)}}
	f := NewFetcher(lister, Options{})
	ctx := context.Background()

	f.Month(ctx, core.NewDate(2025, 9, 1))
	f.Month(ctx, core.NewDate(2025, 10, 1))
	f.InvalidateAll()
	if f.Cache().Size() != 0 {
		t.Fatalf("cache not purged")
	}
	if res := f.Month(ctx, core.NewDate(2025, 9, 1)); res.Cached {
		t.Fatalf("expected a fresh request after InvalidateAll")
	}
}

func TestFetcher_TTLExpiry(t *testing.T) {
	lister := &fakeLister{data: []core.PendingPayment{due("a", 2025, 9, 13)}}
	f := NewFetcher(lister, Options{CacheTTL: time.Minute})
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	f.Cache().WithClock(func() time.Time { return now })

	sept := core.NewDate(2025, 9, 1)
	f.Month(context.Background(), sept)
	now = now.Add(2 * time.Minute)
	if res := f.Month(context.Background(), sept); res.Cached {
		t.Fatalf("entry should have expired")
	}
}
