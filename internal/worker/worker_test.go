package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	// Stop drains the queue before returning
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job string) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(ctx, "job")
		}()
	}
	wg.Wait()
	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestPool_OnError(t *testing.T) {
	errOdd := errors.New("odd job")
	processor := func(ctx context.Context, job int) error {
		if job%2 == 1 {
			return errOdd
		}
		return nil
	}

	var mu sync.Mutex
	var failed []int
	pool := NewPool(1, 10, processor)
	pool.OnError(func(job int, err error) {
		if !errors.Is(err, errOdd) {
			t.Errorf("unexpected error: %v", err)
		}
		mu.Lock()
		failed = append(failed, job)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	for i := 0; i < 4; i++ {
		pool.Submit(ctx, i)
	}
	pool.Stop()

	if len(failed) != 2 || failed[0] != 1 || failed[1] != 3 {
		t.Errorf("expected failed jobs [1 3], got %v", failed)
	}
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	processor := func(ctx context.Context, job int) error {
		<-block
		return nil
	}

	pool := NewPool(1, 0, processor)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	// the single worker takes the first job and blocks
	if err := pool.Submit(ctx, 1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	subCtx, subCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer subCancel()
	if err := pool.Submit(subCtx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	close(block)
	cancel()
	pool.Stop()
}

func TestPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(ctx, i)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	// Stop is idempotent
	pool.Stop()

	t.Logf("processed %d jobs before shutdown", processed.Load())
}
