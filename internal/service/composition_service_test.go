package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeepAlive(t *testing.T) {
	t.Run("renews until stopped", func(t *testing.T) {
		var renewals atomic.Int32
		stop := keepAlive(context.Background(), 5*time.Millisecond, func(context.Context) error {
			renewals.Add(1)
			return nil
		}, func(err error) { t.Errorf("unexpected error: %v", err) })

		// A batch slower than several renew intervals keeps its lock.
		time.Sleep(60 * time.Millisecond)
		stop()

		got := renewals.Load()
		if got < 2 {
			t.Fatalf("renewals = %d, want at least 2", got)
		}
		time.Sleep(30 * time.Millisecond)
		if after := renewals.Load(); after != got {
			t.Errorf("renewed %d more times after stop", after-got)
		}
		stop()
	})

	t.Run("reports failures and keeps going", func(t *testing.T) {
		var failures atomic.Int32
		stop := keepAlive(context.Background(), 5*time.Millisecond, func(context.Context) error {
			return errLockLost
		}, func(err error) {
			if errors.Is(err, errLockLost) {
				failures.Add(1)
			}
		})
		time.Sleep(60 * time.Millisecond)
		stop()

		if failures.Load() < 2 {
			t.Errorf("failures = %d, want at least 2", failures.Load())
		}
	})

	t.Run("stops with the context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stop := keepAlive(ctx, time.Hour, func(context.Context) error { return nil }, func(error) {})
		cancel()

		done := make(chan struct{})
		go func() {
			stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("stop did not return after the context was cancelled")
		}
	})
}
