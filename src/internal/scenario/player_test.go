package scenario

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Test Helpers --

// fakeClock 记录播放器创建的每个计时器，由测试手动触发
type fakeClock struct {
	timers chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{timers: make(chan *fakeTimer, 16)}
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	ft := &fakeTimer{period: d, ch: make(chan time.Time, 1)}
	c.timers <- ft
	return ft
}

// next 等待播放器创建下一个计时器
func (c *fakeClock) next(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case ft := <-c.timers:
		return ft
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for autoplay timer")
		return nil
	}
}

// assertNoTimer 确认短时间内没有新的计时器
func (c *fakeClock) assertNoTimer(t *testing.T) {
	t.Helper()
	select {
	case <-c.timers:
		t.Fatal("unexpected autoplay timer scheduled")
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeTimer struct {
	period time.Duration
	ch     chan time.Time
	mu     sync.Mutex
	stop   bool
}

func (f *fakeTimer) C() <-chan time.Time { return f.ch }

func (f *fakeTimer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stop = true
	return true
}

func (f *fakeTimer) fire() {
	f.ch <- time.Now()
}

func syntheticScript() Script {
	return Script{
		Participants: []Participant{
			{ID: "bank", Role: "Bank", Kind: KindContract, Balance: Ether(10)},
			{ID: "thief", Role: "Thief", Kind: KindEOA, Balance: Ether(1), Deposited: ptr(Ether(0))},
		},
		Steps: []Step{
			{Message: "thief deposits", Actor: "thief", CallStack: []string{"Bank.deposit()"},
				Deltas: []LedgerDelta{{Participant: "thief", Deposited: ptr(Ether(1)), Balance: ptr(Ether(0))}}},
			{Message: "bank pays twice", Level: LevelDanger, Actor: "bank", CallStack: []string{"Bank.withdraw()", "Thief.receive()"},
				Deltas: []LedgerDelta{{Participant: "bank", Balance: ptr(Ether(8))}, {Participant: "ghost", Balance: ptr(Ether(99))}}},
			{Message: "stack unwinds", CallStack: []string{}},
		},
	}
}

func ptr(a Amount) *Amount { return &a }

func newTestPlayer(t *testing.T, opts ...Option) (*Player, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	opts = append([]Option{WithClock(clk), WithLogger(zaptest.NewLogger(t))}, opts...)
	p := NewPlayer(opts...)
	t.Cleanup(p.Close)
	return p, clk
}

// -- Test Cases --

func TestPlayerStartsIdle(t *testing.T) {
	p, clk := newTestPlayer(t)

	p.NextStep()
	p.AutoPlay()
	p.Reset()

	st := p.State()
	assert.Equal(t, TagIdle, st.Tag)
	assert.Zero(t, st.StepIndex)
	assert.False(t, st.AutoPlaying)
	assert.Empty(t, st.Log)
	clk.assertNoTimer(t)
}

func TestSelectInitializesReadyState(t *testing.T) {
	p, _ := newTestPlayer(t)

	p.Select("demo", syntheticScript())

	st := p.State()
	assert.Equal(t, TagReady, st.Tag)
	assert.Equal(t, "demo", st.Title)
	assert.Equal(t, 0, st.StepIndex)
	assert.Equal(t, 3, st.MaxSteps)
	assert.Empty(t, st.CallStack)
	assert.Empty(t, st.Active)
	require.Len(t, st.Log, 1)
	assert.Equal(t, "Scenario loaded: demo", st.Log[0].Message)
	assert.Equal(t, "10 ETH", st.Participants["bank"].Balance.String())
	assert.Equal(t, AddressFor("bank"), st.Participants["bank"].Address)
}

func TestNextStepAppliesStepsInOrder(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Select("demo", syntheticScript())

	p.NextStep()
	st := p.State()
	assert.Equal(t, TagStepping, st.Tag)
	assert.Equal(t, 1, st.StepIndex)
	assert.Equal(t, "thief", st.Active)
	assert.Equal(t, []string{"Bank.deposit()"}, st.CallStack)
	assert.Equal(t, "0 ETH", st.Participants["thief"].Balance.String())
	assert.Equal(t, "1 ETH", st.Participants["thief"].Deposited.String())
	assert.Equal(t, LevelInfo, st.Log[1].Level)
	assert.Equal(t, 1, st.Log[1].Step)

	p.NextStep()
	st = p.State()
	assert.Equal(t, 2, st.StepIndex)
	assert.Equal(t, "bank", st.Active)
	assert.Equal(t, "8 ETH", st.Participants["bank"].Balance.String())
	assert.NotContains(t, st.Participants, "ghost", "deltas never create participants")
	assert.Equal(t, LevelDanger, st.Log[2].Level)

	p.NextStep()
	st = p.State()
	assert.Equal(t, TagFinished, st.Tag)
	assert.Equal(t, 3, st.StepIndex)
	assert.Equal(t, "bank", st.Active, "step without actor keeps the highlight")
	assert.NotNil(t, st.CallStack)
	assert.Empty(t, st.CallStack, "empty call stack replaces the previous frames")
}

func TestNextStepCountsAndSaturates(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Select("demo", syntheticScript())

	for n := 1; n <= 3; n++ {
		p.NextStep()
		assert.Equal(t, n, p.State().StepIndex)
	}
	logLen := len(p.State().Log)

	p.NextStep()
	p.NextStep()
	st := p.State()
	assert.Equal(t, 3, st.StepIndex)
	assert.Equal(t, TagFinished, st.Tag)
	assert.Len(t, st.Log, logLen, "no-op calls do not log")
}

func TestResetRestoresDeclaredRoster(t *testing.T) {
	p, _ := newTestPlayer(t)
	script := syntheticScript()
	p.Select("demo", script)
	p.NextStep()
	p.NextStep()

	p.Reset()

	st := p.State()
	assert.Equal(t, TagReady, st.Tag)
	assert.Zero(t, st.StepIndex)
	assert.Empty(t, st.CallStack)
	assert.Empty(t, st.Active)
	require.Len(t, st.Log, 1)
	assert.Equal(t, "Scenario reset", st.Log[0].Message)
	require.Len(t, st.Participants, len(script.Participants))
	for _, declared := range script.Participants {
		got := st.Participants[declared.ID]
		assert.True(t, declared.Balance.Equal(got.Balance), declared.ID)
		if declared.Deposited != nil {
			require.NotNil(t, got.Deposited)
			assert.True(t, declared.Deposited.Equal(*got.Deposited), declared.ID)
		}
	}
	assert.Equal(t, "10 ETH", script.Participants[0].Balance.String(), "script data is never mutated")
}

func TestSnapshotIsIsolated(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Select("demo", syntheticScript())

	st := p.State()
	st.Participants["bank"].Balance.Value.SetInt64(0)
	st.Log[0].Message = "tampered"

	again := p.State()
	assert.Equal(t, "10 ETH", again.Participants["bank"].Balance.String())
	assert.Equal(t, "Scenario loaded: demo", again.Log[0].Message)
}

func TestAutoPlayRunsToFinished(t *testing.T) {
	var mu sync.Mutex
	var tags []Tag
	p, clk := newTestPlayer(t, WithSpeed(time.Second), WithObserver(func(s State) {
		mu.Lock()
		tags = append(tags, s.Tag)
		mu.Unlock()
	}))
	p.Select("demo", syntheticScript())

	p.AutoPlay()
	assert.True(t, p.State().AutoPlaying)
	assert.Equal(t, TagAutoPlaying, p.State().Tag)

	for n := 1; n <= 3; n++ {
		timer := clk.next(t)
		assert.Equal(t, time.Second, timer.period)
		timer.fire()
		require.Eventually(t, func() bool { return p.State().StepIndex == n }, time.Second, 5*time.Millisecond)
	}

	require.Eventually(t, func() bool { return !p.State().AutoPlaying }, time.Second, 5*time.Millisecond)
	st := p.State()
	assert.Equal(t, TagFinished, st.Tag)
	assert.Equal(t, st.MaxSteps, st.StepIndex)
	clk.assertNoTimer(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, TagFinished, tags[len(tags)-1])
}

func TestAutoPlayIsIdempotent(t *testing.T) {
	p, clk := newTestPlayer(t)
	p.Select("demo", syntheticScript())

	p.AutoPlay()
	p.AutoPlay()

	clk.next(t)
	clk.assertNoTimer(t)
	assert.True(t, p.State().AutoPlaying)
}

func TestManualControlsIgnoredWhileAutoplaying(t *testing.T) {
	p, clk := newTestPlayer(t, WithSpeed(2*time.Second))
	p.Select("demo", syntheticScript())
	p.AutoPlay()
	clk.next(t)

	p.NextStep()
	assert.Equal(t, 0, p.State().StepIndex)

	assert.Equal(t, 2*time.Second, p.SetSpeed(500*time.Millisecond), "speed is locked while autoplaying")
}

func TestResetCancelsPendingTick(t *testing.T) {
	p, clk := newTestPlayer(t)
	p.Select("demo", syntheticScript())
	p.AutoPlay()
	timer := clk.next(t)

	p.Reset()
	timer.fire()

	clk.assertNoTimer(t)
	st := p.State()
	assert.Equal(t, TagReady, st.Tag)
	assert.False(t, st.AutoPlaying)
	assert.Zero(t, st.StepIndex, "stale tick must not mutate the reset state")
}

func TestSelectCancelsPendingTick(t *testing.T) {
	p, clk := newTestPlayer(t)
	p.Select("first", syntheticScript())
	p.AutoPlay()
	timer := clk.next(t)

	other := Script{
		Participants: []Participant{{ID: "solo", Role: "Solo", Kind: KindEOA, Balance: Units(5)}},
		Steps:        []Step{{Message: "only step"}},
	}
	p.Select("second", other)
	timer.fire()

	clk.assertNoTimer(t)
	st := p.State()
	assert.Equal(t, "second", st.Title)
	assert.Equal(t, TagReady, st.Tag)
	assert.Zero(t, st.StepIndex)
	assert.Contains(t, st.Participants, "solo")
	assert.NotContains(t, st.Participants, "bank")
}

func TestPauseKeepsProgress(t *testing.T) {
	p, clk := newTestPlayer(t)
	p.Select("demo", syntheticScript())
	p.AutoPlay()
	clk.next(t).fire()
	require.Eventually(t, func() bool { return p.State().StepIndex == 1 }, time.Second, 5*time.Millisecond)
	clk.next(t)

	p.Pause()

	st := p.State()
	assert.False(t, st.AutoPlaying)
	assert.Equal(t, TagStepping, st.Tag)
	assert.Equal(t, 1, st.StepIndex)

	p.NextStep()
	assert.Equal(t, 2, p.State().StepIndex)
}

func TestAutoPlayIgnoredWhenFinished(t *testing.T) {
	p, clk := newTestPlayer(t)
	p.Select("demo", syntheticScript())
	for i := 0; i < 3; i++ {
		p.NextStep()
	}

	p.AutoPlay()

	clk.assertNoTimer(t)
	assert.False(t, p.State().AutoPlaying)
}

func TestEmptyScriptIsFinishedImmediately(t *testing.T) {
	p, clk := newTestPlayer(t)
	p.Select("empty", Script{})

	p.AutoPlay()
	p.NextStep()

	clk.assertNoTimer(t)
	st := p.State()
	assert.Equal(t, TagFinished, st.Tag)
	assert.Zero(t, st.MaxSteps)
}

func TestSetSpeedClamps(t *testing.T) {
	p, _ := newTestPlayer(t)

	assert.Equal(t, DefaultSpeed, p.State().Speed)
	assert.Equal(t, MinSpeed, p.SetSpeed(time.Millisecond))
	assert.Equal(t, MaxSpeed, p.SetSpeed(time.Hour))
	assert.Equal(t, 3*time.Second, p.SetSpeed(3*time.Second))

	clamped := NewPlayer(WithSpeed(-time.Second))
	assert.Equal(t, MinSpeed, clamped.State().Speed)
}

func TestAutoPlayWithRealClock(t *testing.T) {
	p := NewPlayer(WithSpeed(MinSpeed), WithLogger(zaptest.NewLogger(t)))
	defer p.Close()
	p.Select("real", Script{Steps: []Step{{Message: "one"}, {Message: "two"}}})

	p.AutoPlay()

	require.Eventually(t, func() bool { return p.State().Tag == TagFinished }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, p.State().StepIndex)
}

func TestWithNilLogger(t *testing.T) {
	p := NewPlayer(WithLogger(nil), WithSpeed(time.Millisecond))
	defer p.Close()

	p.Select("quiet", syntheticScript())
	p.NextStep()
	p.NextStep()

	assert.Equal(t, 2, p.State().StepIndex)
}
