package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int64

	tasks := make([]func(context.Context) (int, error), 20)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return i, nil
		}
	}

	Run(context.Background(), 5, tasks)

	if got := atomic.LoadInt64(&peak); got > 5 {
		t.Errorf("expected at most 5 in flight, saw %d", got)
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	tasks := make([]func(context.Context) (int, error), 10)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			// Later tasks finish first
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return i * 100, nil
		}
	}

	results := Run(context.Background(), 10, tasks)

	for i, r := range results {
		if r.Value != i*100 {
			t.Errorf("slot %d: expected %d, got %d", i, i*100, r.Value)
		}
	}
}

func TestRun_AllSettled(t *testing.T) {
	boom := errors.New("boom")
	tasks := []func(context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "a", nil },
		func(ctx context.Context) (string, error) { return "", boom },
		func(ctx context.Context) (string, error) { return "c", nil },
	}

	results := Run(context.Background(), 2, tasks)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Value != "a" || results[0].Err != nil {
		t.Errorf("slot 0: got %q, %v", results[0].Value, results[0].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("slot 1: expected boom, got %v", results[1].Err)
	}
	if results[2].Value != "c" || results[2].Err != nil {
		t.Errorf("slot 2: got %q, %v", results[2].Value, results[2].Err)
	}
}

func TestRun_TwoWaves(t *testing.T) {
	tasks := make([]func(context.Context) (int, error), 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			time.Sleep(50 * time.Millisecond)
			return 0, nil
		}
	}

	start := time.Now()
	Run(context.Background(), 5, tasks)
	elapsed := time.Since(start)

	if elapsed < 100*time.Millisecond {
		t.Errorf("10 tasks at limit 5 should take two waves, finished in %v", elapsed)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("expected roughly two waves, took %v", elapsed)
	}
}

func TestRun_CancelSettlesPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Limit 1: whichever task runs first holds the slot past the cancel,
	// so the other never starts.
	started := make(chan struct{}, 2)
	task := func(ctx context.Context) (int, error) {
		started <- struct{}{}
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	}
	tasks := []func(context.Context) (int, error){task, task}

	go func() {
		<-started
		cancel()
	}()

	results := Run(ctx, 1, tasks)

	var completed, cancelled int
	for _, r := range results {
		switch {
		case r.Err == nil:
			completed++
		case errors.Is(r.Err, context.Canceled):
			cancelled++
		default:
			t.Errorf("unexpected error: %v", r.Err)
		}
	}
	if completed != 1 || cancelled != 1 {
		t.Errorf("expected 1 completed and 1 cancelled, got %d/%d", completed, cancelled)
	}
}

func TestRun_ZeroLimitDefaultsToSerial(t *testing.T) {
	tasks := []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 2, nil },
	}

	results := Run(context.Background(), 0, tasks)

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("slot %d: %v", i, r.Err)
		}
		if r.Value != i+1 {
			t.Errorf("slot %d: expected %d, got %d", i, i+1, r.Value)
		}
	}
}

func ExampleRun() {
	tasks := []func(context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "first", nil },
		func(ctx context.Context) (string, error) { return "second", nil },
	}
	for _, r := range Run(context.Background(), 2, tasks) {
		fmt.Println(r.Value)
	}
	// Output:
	// first
	// second
}
