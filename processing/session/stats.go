package session

import "time"

// stats tracks processed frames per second over one-second windows and the
// latency of the last processed frame.
type stats struct {
	now func() time.Time

	fps     uint
	latency time.Duration

	frameCount    uint
	lastFpsUpdate time.Time
}

func newStats(now func() time.Time) stats {
	return stats{now: now, lastFpsUpdate: now()}
}

func (st *stats) record(latency time.Duration) {
	st.latency = latency
	st.frameCount++

	if t := st.now(); t.Sub(st.lastFpsUpdate) >= time.Second {
		st.fps = st.frameCount
		st.frameCount = 0
		st.lastFpsUpdate = t
	}
}
