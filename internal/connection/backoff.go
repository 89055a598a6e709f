package connection

import (
	"math/rand"
	"time"
)

// JitteredDelay spreads base by +/- jitterPct percent and clamps it to cap.
func JitteredDelay(base, cap time.Duration, jitterPct int) time.Duration {
	if jitterPct <= 0 {
		jitterPct = DefaultJitterPercent
	}
	delta := (rand.Float64()*2 - 1) * float64(jitterPct) / 100.0
	wait := time.Duration(float64(base) * (1 + delta))
	if wait < 0 {
		wait = base
	}
	if wait > cap {
		wait = cap
	}
	return wait
}

// Backoff returns the delay before reconnect attempt n (0-based): base
// doubled n times, capped, then jittered.
func Backoff(n int, base, cap time.Duration, jitterPct int) time.Duration {
	d := base
	for i := 0; i < n && d < cap; i++ {
		d *= 2
	}
	if d > cap {
		d = cap
	}
	return JitteredDelay(d, cap, jitterPct)
}
