package protocol

import "time"

// retransmissionTimer holds at most one armed deadline. Arming replaces the
// previous deadline.
type retransmissionTimer struct {
	deadline time.Time
	armed    bool
}

func (timer *retransmissionTimer) arm(now time.Time, d time.Duration) {
	timer.deadline = now.Add(d)
	timer.armed = true
}

func (timer *retransmissionTimer) cancel() {
	timer.armed = false
}

func (timer *retransmissionTimer) hasExpired(now time.Time) bool {
	return timer.armed && !now.Before(timer.deadline)
}

func (timer *retransmissionTimer) remaining(now time.Time) time.Duration {
	return timer.deadline.Sub(now)
}
