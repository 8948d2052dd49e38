package platform

import (
	"errors"
	"testing"
	"time"
)

func TestWaitActive(t *testing.T) {
	t.Run("switch completes", func(t *testing.T) {
		reads := 0
		err := waitActive(3, time.Second, time.Millisecond, func() (int, error) {
			reads++
			if reads < 4 {
				return 7, nil
			}
			return 3, nil
		})
		if err != nil {
			t.Fatalf("waitActive() error = %v", err)
		}
		if reads != 4 {
			t.Fatalf("reads = %d, want 4", reads)
		}
	})

	t.Run("timeout returns", func(t *testing.T) {
		start := time.Now()
		err := waitActive(3, 30*time.Millisecond, 5*time.Millisecond, func() (int, error) {
			return 7, nil
		})
		if err == nil {
			t.Fatal("waitActive() error = nil, want timeout")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("waitActive() took %v, want it bounded by the timeout", elapsed)
		}
	})

	t.Run("read error", func(t *testing.T) {
		boom := errors.New("ioctl failed")
		err := waitActive(3, time.Second, time.Millisecond, func() (int, error) {
			return 0, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("waitActive() error = %v, want %v", err, boom)
		}
	})
}
