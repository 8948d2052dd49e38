package platform

import (
	"fmt"
	"time"
)

// waitActive polls active until it reports vt or timeout passes. A read
// error ends the wait at once.
func waitActive(vt int, timeout, interval time.Duration, active func() (int, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		cur, err := active()
		if err != nil {
			return fmt.Errorf("failed to read active VT: %w", err)
		}
		if cur == vt {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for VT%d to become active (on VT%d)", vt, cur)
		}
		time.Sleep(interval)
	}
}
