package scenario

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 自动播放周期的默认值与允许范围，越界值会被静默钳制
const (
	DefaultSpeed = 1500 * time.Millisecond
	MinSpeed     = 250 * time.Millisecond
	MaxSpeed     = 10 * time.Second
)

// Tag 播放器状态
type Tag string

const (
	TagIdle        Tag = "Idle"
	TagReady       Tag = "Ready"
	TagStepping    Tag = "Stepping"
	TagAutoPlaying Tag = "AutoPlaying"
	TagFinished    Tag = "Finished"
)

// LogEntry 场景日志条目，只追加
type LogEntry struct {
	Seq     int
	Step    int // 0 表示非脚本步骤产生的条目（加载、重置）
	Level   LogLevel
	Message string
}

// State 是播放器状态的只读快照
type State struct {
	Tag          Tag
	Title        string
	StepIndex    int
	MaxSteps     int
	Participants map[string]Participant
	Active       string
	CallStack    []string
	Log          []LogEntry
	AutoPlaying  bool
	Speed        time.Duration
}

// Option 配置 Player
type Option func(*Player)

// WithClock 替换计时器来源
func WithClock(c Clock) Option {
	return func(p *Player) { p.clock = c }
}

// WithLogger 设置日志记录器，nil 时保持静默
func WithLogger(l *zap.Logger) Option {
	return func(p *Player) {
		if l == nil {
			l = zap.NewNop()
		}
		p.logger = l.Named("scenario")
	}
}

// WithSpeed 设置初始自动播放周期
func WithSpeed(d time.Duration) Option {
	return func(p *Player) { p.speed = d }
}

// WithObserver 注册状态变更回调。回调在播放器锁内执行，不得回调 Player 的方法。
func WithObserver(fn func(State)) Option {
	return func(p *Player) { p.observer = fn }
}

// task 是播放器独占的自动播放任务句柄
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Player 在模拟账本上逐步回放场景脚本
type Player struct {
	mu       sync.Mutex
	clock    Clock
	logger   *zap.Logger
	observer func(State)

	title        string
	script       Script
	loaded       bool
	tag          Tag
	stepIndex    int
	participants map[string]Participant
	active       string
	callStack    []string
	log          []LogEntry
	speed        time.Duration
	task         *task
}

// NewPlayer 创建处于 Idle 状态的播放器
func NewPlayer(opts ...Option) *Player {
	p := &Player{
		clock:  realClock{},
		logger: zap.NewNop(),
		tag:    TagIdle,
		speed:  DefaultSpeed,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.speed = p.clampSpeed(p.speed)
	return p
}

// Select 丢弃当前状态并载入新脚本，任何状态下均可调用
func (p *Player) Select(title string, script Script) {
	p.mu.Lock()
	stale := p.stopTaskLocked()
	p.title = title
	p.script = script
	p.loaded = true
	p.initLocked()
	p.appendLogLocked(0, LevelInfo, "Scenario loaded: "+title)
	p.notifyLocked()
	p.mu.Unlock()

	wait(stale)
	p.logger.Debug("Scenario selected.", zap.String("title", title), zap.Int("steps", len(script.Steps)))
}

// NextStep 手动前进一步；非法状态下为空操作
func (p *Player) NextStep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded || p.task != nil || p.stepIndex >= len(p.script.Steps) {
		p.logger.Debug("NextStep ignored.", zap.String("state", string(p.tag)))
		return
	}
	p.applyLocked()
	if p.stepIndex < len(p.script.Steps) {
		p.tag = TagStepping
	}
	p.notifyLocked()
}

// AutoPlay 启动定时自动播放。重复调用不会创建第二个任务。
func (p *Player) AutoPlay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded || p.task != nil || p.stepIndex >= len(p.script.Steps) {
		p.logger.Debug("AutoPlay ignored.", zap.String("state", string(p.tag)))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	p.task = t
	p.tag = TagAutoPlaying
	go p.run(ctx, t, p.speed)
	p.notifyLocked()
}

// Pause 取消自动播放并保留当前进度
func (p *Player) Pause() {
	p.mu.Lock()
	stale := p.stopTaskLocked()
	if stale != nil {
		p.tag = TagStepping
		if p.stepIndex == 0 {
			p.tag = TagReady
		}
		p.notifyLocked()
	}
	p.mu.Unlock()

	wait(stale)
}

// Reset 先取消定时任务，再恢复脚本声明的初始名单并回到 Ready
func (p *Player) Reset() {
	p.mu.Lock()
	stale := p.stopTaskLocked()
	if p.loaded {
		p.initLocked()
		p.appendLogLocked(0, LevelInfo, "Scenario reset")
		p.notifyLocked()
	}
	p.mu.Unlock()

	wait(stale)
}

// SetSpeed 调整自动播放周期，仅在未自动播放时生效，返回实际生效的周期
func (p *Player) SetSpeed(d time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.task != nil {
		p.logger.Debug("SetSpeed ignored while autoplaying.", zap.Duration("requested", d))
		return p.speed
	}
	p.speed = p.clampSpeed(d)
	return p.speed
}

// State 返回当前状态的深拷贝
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Close 停止自动播放并等待后台任务退出
func (p *Player) Close() {
	p.Pause()
}

func (p *Player) run(ctx context.Context, t *task, period time.Duration) {
	defer close(t.done)
	for {
		timer := p.clock.NewTimer(period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
		if !p.tick(t) {
			return
		}
	}
}

// tick 执行一次自动步进。任务已被取消或替换时不做任何修改。
func (p *Player) tick(t *task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.task != t {
		return false
	}
	p.applyLocked()
	if p.stepIndex >= len(p.script.Steps) {
		p.task = nil
		t.cancel()
		p.notifyLocked()
		p.logger.Debug("Autoplay finished.", zap.String("title", p.title))
		return false
	}
	p.notifyLocked()
	return true
}

func (p *Player) initLocked() {
	p.stepIndex = 0
	p.participants = p.script.Roster()
	p.active = ""
	p.callStack = nil
	p.log = nil
	p.tag = TagReady
	if len(p.script.Steps) == 0 {
		p.tag = TagFinished
	}
}

func (p *Player) applyLocked() {
	idx := p.stepIndex
	step := p.script.Steps[idx]

	level := step.Level
	if level == "" {
		level = LevelInfo
	}
	p.appendLogLocked(idx+1, level, step.Message)

	if step.Actor != "" {
		p.active = step.Actor
	}
	if step.CallStack != nil {
		p.callStack = append([]string{}, step.CallStack...)
	}
	for _, d := range step.Deltas {
		participant, ok := p.participants[d.Participant]
		if !ok {
			p.logger.Debug("Ledger delta for unknown participant ignored.",
				zap.Int("step", idx+1), zap.String("participant", d.Participant))
			continue
		}
		d.apply(&participant)
		p.participants[d.Participant] = participant
	}

	p.stepIndex++
	if p.stepIndex >= len(p.script.Steps) {
		p.tag = TagFinished
	}
}

func (p *Player) appendLogLocked(step int, level LogLevel, msg string) {
	p.log = append(p.log, LogEntry{Seq: len(p.log) + 1, Step: step, Level: level, Message: msg})
}

// stopTaskLocked 取消独占任务并返回其句柄，调用方须在释放锁后等待其退出
func (p *Player) stopTaskLocked() *task {
	t := p.task
	if t == nil {
		return nil
	}
	p.task = nil
	t.cancel()
	return t
}

func wait(t *task) {
	if t != nil {
		<-t.done
	}
}

func (p *Player) clampSpeed(d time.Duration) time.Duration {
	clamped := d
	if clamped < MinSpeed {
		clamped = MinSpeed
	}
	if clamped > MaxSpeed {
		clamped = MaxSpeed
	}
	if clamped != d {
		p.logger.Warn("Autoplay speed out of range, clamped.",
			zap.Duration("requested", d), zap.Duration("effective", clamped))
	}
	return clamped
}

func (p *Player) notifyLocked() {
	if p.observer != nil {
		p.observer(p.snapshotLocked())
	}
}

func (p *Player) snapshotLocked() State {
	st := State{
		Tag:         p.tag,
		Title:       p.title,
		StepIndex:   p.stepIndex,
		MaxSteps:    len(p.script.Steps),
		Active:      p.active,
		AutoPlaying: p.task != nil,
		Speed:       p.speed,
	}
	if p.participants != nil {
		st.Participants = make(map[string]Participant, len(p.participants))
		for id, participant := range p.participants {
			st.Participants[id] = participant.Clone()
		}
	}
	if p.callStack != nil {
		st.CallStack = append([]string{}, p.callStack...)
	}
	if p.log != nil {
		st.Log = append([]LogEntry{}, p.log...)
	}
	return st
}
