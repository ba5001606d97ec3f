package evcore

import "time"

// Delay schedules fn to run after opts.Seconds seconds, or on the next
// tick if opts.Seconds is zero or negative. The handle is one-shot:
// destroyed after fn returns. If eventCB is non-nil, any error raised
// from inside fn is routed to it (rather than to the loop-wide
// default-event-cb) when application error trapping is enabled.
func (l *Loop) Delay(fn func(*Loop), opts DelayOptions, eventCB func(Condition)) Handle {
	rec := l.registry.allocate(KindTimer)
	rec.callbacks.Event = eventCB

	entry := &timerEntry{when: time.Now().Add(durationFromSeconds(opts.Seconds)), eventCB: eventCB}
	entry.fn = func() {
		defer l.registry.destroy(rec.id)
		fn(l)
	}
	rec.state = entry
	rec.cancel = func() { entry.canceled = true }

	l.scheduleTimer(entry)
	return rec.id
}

func durationFromSeconds(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
