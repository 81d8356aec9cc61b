package scenario

import "time"

// Clock 为自动播放提供计时器，测试中可替换为手动触发的实现
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// Timer 是 time.Timer 的最小抽象
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
