package processor

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"injuryguard-client/internal/history"
	"injuryguard-client/internal/models"
	"injuryguard-client/internal/notifier"
	"injuryguard-client/internal/smoother"
)

// 连续低风险计数的阈值
const (
	goodStreakRiskCeiling = 20 // 风险低于该值且 GREEN 时计数 +1
	goodStreakResetFloor  = 40 // 风险高于该值时计数归零
)

// Snapshot 当前分析快照（每条 Reading 覆盖前一份，不保留历史）
type Snapshot struct {
	Reading      models.Reading
	Smoothed     []models.Landmark
	DangerJoints map[string]bool
	ReceivedAt   time.Time
}

// AlertHook 新报警记录回调（用于团队侧镜像等旁路输出）
type AlertHook func(record models.AlertRecord)

// Processor 遥测处理器
// 唯一的缓冲写入方：风险历史、报警日志、会话状态都只经由这里变更
type Processor struct {
	logger     *zap.Logger
	riskHist   *history.RiskHistory
	alertLog   *history.AlertLog
	dispatcher *notifier.Dispatcher
	smoother   *smoother.Smoother
	now        func() time.Time
	onAlert    AlertHook

	snapshot *Snapshot
}

// NewProcessor 创建遥测处理器
func NewProcessor(
	riskHist *history.RiskHistory,
	alertLog *history.AlertLog,
	dispatcher *notifier.Dispatcher,
	sm *smoother.Smoother,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		logger:     logger,
		riskHist:   riskHist,
		alertLog:   alertLog,
		dispatcher: dispatcher,
		smoother:   sm,
		now:        time.Now,
	}
}

// SetClock 注入时钟（测试用）
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// SetAlertHook 注册新报警记录回调
func (p *Processor) SetAlertHook(hook AlertHook) {
	p.onAlert = hook
}

// Snapshot 当前分析快照；尚未收到任何 Reading 时为 nil
func (p *Processor) Snapshot() *Snapshot {
	return p.snapshot
}

// ProcessRaw 解析并处理一条入站消息
// 解析失败按坏遥测处理：告警日志记一条 warn，不向上传播错误
func (p *Processor) ProcessRaw(raw []byte, state *models.SessionState) {
	var reading models.Reading
	if err := json.Unmarshal(raw, &reading); err != nil {
		p.logger.Warn("Discarding malformed telemetry message", zap.Error(err))
		return
	}
	p.Process(&reading, state)
}

// Process 处理一条 Reading：
// 发布快照 → 追加风险历史 → 非 GREEN 记入报警日志 → 更新连续低风险计数
// → 交给通知调度器和骨架平滑器
func (p *Processor) Process(reading *models.Reading, state *models.SessionState) {
	now := p.now()

	smoothed := p.smoother.Apply(reading.SkeletonLandmarks)
	p.snapshot = &Snapshot{
		Reading:      *reading,
		Smoothed:     smoothed,
		DangerJoints: smoother.DangerJoints(reading.PostureAlerts, reading.Issues),
		ReceivedAt:   now,
	}

	p.riskHist.Append(models.RiskHistoryPoint{
		Time:  now,
		Risk:  reading.InjuryProbability,
		Level: reading.AlertLevel,
	})

	if reading.AlertLevel != models.AlertGreen {
		record := p.alertLog.Add(reading, state.Sport, now)
		if p.onAlert != nil {
			p.onAlert(record)
		}
	}

	switch {
	case reading.InjuryProbability > goodStreakResetFloor:
		state.GoodStreakCount = 0
	case reading.InjuryProbability < goodStreakRiskCeiling && reading.AlertLevel == models.AlertGreen:
		state.GoodStreakCount++
	}

	p.dispatcher.HandleReading(reading, state)
}
