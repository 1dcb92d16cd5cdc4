package focus

import "time"

// Rewarder converts continuously focused time into reward grants.
type Rewarder struct {
	interval time.Duration
}

// NewRewarder creates a Rewarder that grants once per interval.
func NewRewarder(interval time.Duration) Rewarder {
	return Rewarder{interval: interval}
}

// Interval returns the reward cadence.
func (r Rewarder) Interval() time.Duration {
	return r.interval
}

// Accrue adds dt to the time since the last reward and returns the
// remainder together with the number of intervals crossed. A single large dt
// can cross several intervals; none are skipped. The loop runs at most
// dt/interval + 1 times, which covers a carried remainder below one interval.
func (r Rewarder) Accrue(since, dt time.Duration) (time.Duration, int) {
	if r.interval <= 0 || dt < 0 {
		return since, 0
	}

	since += dt
	limit := int(dt/r.interval) + 1
	grants := 0
	for i := 0; i < limit && since >= r.interval; i++ {
		since -= r.interval
		grants++
	}
	return since, grants
}
