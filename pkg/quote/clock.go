package quote

import "time"

// Timer is a cancellable delayed task
type Timer interface {
	Stop() bool
}

// Clock schedules delayed tasks
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by time.AfterFunc
func SystemClock() Clock {
	return systemClock{}
}
