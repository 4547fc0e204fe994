package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDefaultSize(t *testing.T) {
	if New(0).Size() < 1 {
		t.Fatal("default size must be at least 1")
	}
	if got := New(3).Size(); got != 3 {
		t.Errorf("Size = %d", got)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	p := New(2)
	var cur, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Run(context.Background(), func(context.Context) error {
				n := cur.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				cur.Add(-1)
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds pool size", peak.Load())
	}
	if p.InFlight() != 0 || p.Waiting() != 0 {
		t.Errorf("in flight %d, waiting %d after drain", p.InFlight(), p.Waiting())
	}
}

func TestRunTimesOutWhileQueued(t *testing.T) {
	p := New(1)
	hold := make(chan struct{})
	started := make(chan struct{})
	go p.Run(context.Background(), func(context.Context) error {
		close(started)
		<-hold
		return nil
	})
	<-started
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := p.Run(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if called {
		t.Error("fn ran without a slot")
	}
}

func TestRunPassesThroughError(t *testing.T) {
	boom := errors.New("boom")
	if err := New(1).Run(context.Background(), func(context.Context) error { return boom }); err != boom {
		t.Fatalf("err = %v", err)
	}
}

func TestTryRun(t *testing.T) {
	p := New(1)
	hold := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(context.Background(), func(context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	ran, err := p.TryRun(context.Background(), func(context.Context) error { return nil })
	if ran || err != nil {
		t.Errorf("TryRun on a full pool: ran=%v err=%v", ran, err)
	}
	if p.InFlight() != 1 {
		t.Errorf("InFlight = %d", p.InFlight())
	}
	close(hold)
	<-done

	ran, _ = p.TryRun(context.Background(), func(context.Context) error { return nil })
	if !ran {
		t.Error("TryRun on an idle pool did not run")
	}
}
