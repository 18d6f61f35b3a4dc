package notifier

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"injuryguard-client/internal/models"
)

// Priority 播报优先级
type Priority string

const (
	// PriorityInterrupt 打断当前播报，立即开始
	PriorityInterrupt Priority = "interrupt"
	// PriorityNormal 有播报进行中时直接丢弃（不排队）
	PriorityNormal Priority = "normal"
)

// GoodStreakTarget 触发正向激励所需的连续低风险读数
const GoodStreakTarget = 50

// PostureBannerDuration 姿态警告横幅的自动清除时长
const PostureBannerDuration = 4000 * time.Millisecond

// 飞行物警告触发条件
const (
	hazardObjectRiskThreshold  = 80
	hazardObjectSpeedThreshold = 30 // km/h
)

// affirmations 正向激励语（固定短语集，伪随机选取）
var affirmations = []string{
	"Great form! Keep it up.",
	"Excellent technique, stay consistent.",
	"Your posture looks solid. Nice work.",
	"Strong and steady. Well done.",
	"Perfect rhythm, keep moving like that.",
}

// Sink 播报输出端抽象（语音合成 + 提示音），尽力而为，失败被吞掉
// Speak 完成（或失败）时必须调用 done，释放播报槽
type Sink interface {
	Speak(text string, done func())
	Cancel()
	Chime()
}

// Options 调度器冷却配置
type Options struct {
	PostureCooldown time.Duration
	CoachCooldown   time.Duration
	HazardCooldown  time.Duration
}

// DefaultOptions 默认冷却窗口
func DefaultOptions() Options {
	return Options{
		PostureCooldown: 5000 * time.Millisecond,
		CoachCooldown:   15000 * time.Millisecond,
		HazardCooldown:  5000 * time.Millisecond,
	}
}

// Dispatcher 通知调度器
// 单槽播报通道：同一时刻至多一条播报在进行，interrupt 抢占，normal 丢弃
// 三类冷却相互独立，计时起点记在 SessionState 的 Last*NotifyTime 字段上，
// 随会话创建和销毁，调度器本身不跨会话保留冷却状态
type Dispatcher struct {
	sink   Sink
	opts   Options
	logger *zap.Logger
	now    func() time.Time
	rng    *rand.Rand

	muted     bool
	speaking  bool
	speechGen int // 播报代数，用于忽略已被抢占/取消的完成回调

	bannerMessage string
	bannerUntil   time.Time
}

// NewDispatcher 创建通知调度器
func NewDispatcher(sink Sink, opts Options, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock 注入时钟（测试用）
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Reset 会话开始时清除横幅状态（冷却状态随 SessionState 一起新建）
func (d *Dispatcher) Reset() {
	d.bannerMessage = ""
	d.bannerUntil = time.Time{}
}

// HandleReading 根据一条 Reading 决定播报动作
// 顺序：姿态警告 → 飞行物警告 → 正向激励 → RED 兜底
func (d *Dispatcher) HandleReading(reading *models.Reading, state *models.SessionState) {
	now := d.now()

	hasPosture := len(reading.PostureAlerts) > 0
	if hasPosture && d.allow(state.LastPostureNotifyTime, d.opts.PostureCooldown) {
		alert := highestPriorityPostureAlert(reading.PostureAlerts)
		// 横幅是视觉信号，静音不抑制
		d.bannerMessage = alert.Message
		d.bannerUntil = now.Add(PostureBannerDuration)
		if d.Announce(alert.Message, PriorityInterrupt) {
			state.LastPostureNotifyTime = now
		}
	}

	if models.ProjectileHazardApplies(state.Sport) &&
		reading.ObjectRisk > hazardObjectRiskThreshold &&
		reading.ObjectSpeed > hazardObjectSpeedThreshold &&
		d.allow(state.LastHazardNotifyTime, d.opts.HazardCooldown) {
		if d.Announce("Fast object approaching, protect yourself!", PriorityInterrupt) {
			state.LastHazardNotifyTime = now
		}
	}

	if state.GoodStreakCount >= GoodStreakTarget && d.allow(state.LastCoachNotifyTime, d.opts.CoachCooldown) {
		phrase := affirmations[d.rng.Intn(len(affirmations))]
		if d.Announce(phrase, PriorityNormal) {
			state.GoodStreakCount = 0
			state.LastCoachNotifyTime = now
		}
	}

	if reading.AlertLevel == models.AlertRed && !hasPosture {
		if !d.muted {
			d.sink.Chime()
		}
		text := reading.RecommendedAction
		if text == "" {
			text = "High injury risk detected: " + reading.InjuryType
		}
		d.Announce(text, PriorityInterrupt)
	}
}

// Announce 请求一次播报，返回是否实际交付给输出端
// interrupt 取消进行中的播报后立即开始；normal 在占用时丢弃
func (d *Dispatcher) Announce(text string, priority Priority) bool {
	if d.muted {
		return false
	}
	if d.speaking {
		if priority == PriorityNormal {
			return false
		}
		d.sink.Cancel()
	}
	d.speechGen++
	gen := d.speechGen
	d.speaking = true
	d.sink.Speak(text, func() {
		if gen == d.speechGen {
			d.speaking = false
		}
	})
	d.logger.Debug("Announcement dispatched",
		zap.String("priority", string(priority)),
		zap.String("text", text),
	)
	return true
}

// CancelInFlight 取消进行中的播报（会话停止时调用）
func (d *Dispatcher) CancelInFlight() {
	if d.speaking {
		d.sink.Cancel()
		d.speechGen++
		d.speaking = false
	}
}

// SetMuted 设置全局静音；新进入静音时取消进行中的播报
// 不影响视觉横幅和报警日志；重复设置幂等
func (d *Dispatcher) SetMuted(muted bool) {
	if muted && !d.muted {
		d.CancelInFlight()
	}
	d.muted = muted
}

// Muted 当前静音状态
func (d *Dispatcher) Muted() bool {
	return d.muted
}

// PostureBanner 当前姿态横幅；超过 4 秒自动失效
func (d *Dispatcher) PostureBanner() (string, bool) {
	if d.bannerMessage == "" || d.now().After(d.bannerUntil) {
		return "", false
	}
	return d.bannerMessage, true
}

// allow 该类别的冷却窗口是否已过（lastAt 为零值表示本会话尚未播报过）
func (d *Dispatcher) allow(lastAt time.Time, window time.Duration) bool {
	if lastAt.IsZero() {
		return true
	}
	return d.now().Sub(lastAt) >= window
}

// highestPriorityPostureAlert 选出最需要播报的姿态警告：danger 优先于 warning
func highestPriorityPostureAlert(alerts []models.PostureAlert) models.PostureAlert {
	best := alerts[0]
	for _, pa := range alerts[1:] {
		if pa.Severity == models.SeverityDanger && best.Severity != models.SeverityDanger {
			best = pa
		}
	}
	return best
}
