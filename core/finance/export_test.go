package finance

import "time"

// SetNowFunc pins the clock used for OR years and timestamps until restore is called.
func SetNowFunc(f func() time.Time) (restore func()) {
	prev := nowFunc
	nowFunc = f
	return func() { nowFunc = prev }
}
