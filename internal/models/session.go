package models

import "time"

// 支持的运动类型（与分析服务 /api/sports 保持一致）
const (
	SportFootball      = "football"
	SportCricket       = "cricket"
	SportWeightlifting = "weightlifting"
	SportGeneric       = "generic"
)

// ParseSport 规范化运动类型，未知值回落到 generic
func ParseSport(s string) string {
	switch s {
	case SportFootball, SportCricket, SportWeightlifting, SportGeneric:
		return s
	default:
		return SportGeneric
	}
}

// ProjectileHazardApplies 该运动是否存在飞行物撞击风险
// （举重场景没有快速接近的球类，不触发飞行物警告）
func ProjectileHazardApplies(sport string) bool {
	return sport != SportWeightlifting
}

// SessionState 一次监测会话的状态
// 由遥测处理器和通知调度器在单一事件循环内更新
// 三个 Last*NotifyTime 是各自冷却窗口的计时起点（从该类别上一次成功播报起计）
type SessionState struct {
	Sport                 string
	StartTime             time.Time
	GoodStreakCount       uint
	LastCoachNotifyTime   time.Time
	LastPostureNotifyTime time.Time
	LastHazardNotifyTime  time.Time
	Muted                 bool
}

// RiskHistoryPoint 风险历史采样点（环形缓冲，容量 60）
type RiskHistoryPoint struct {
	Time  time.Time `json:"time"`
	Risk  float64   `json:"risk"`
	Level string    `json:"level"`
}

// AlertRecord 报警记录（alert_level != GREEN 的 Reading，带生成 ID 和接收时间）
type AlertRecord struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	TimeLabel  string    `json:"time_label"` // 格式化的接收时间，用于展示
	Level      string    `json:"level"`
	Risk       float64   `json:"risk"`
	Message    string    `json:"message"`
	InjuryType string    `json:"injury_type"`
	Action     string    `json:"action"`
	Sport      string    `json:"sport"`
}

// SessionSummary 会话结束摘要（只生成一次，展示后丢弃）
type SessionSummary struct {
	DurationSeconds  int     `json:"duration_seconds"`
	DurationLabel    string  `json:"duration_label"` // 如 "2m 5s"
	AverageScore     float64 `json:"average_score"`  // clamp(100 - mean(risk), 0, 100)
	PeakRisk         float64 `json:"peak_risk"`
	AlertCount       int     `json:"alert_count"`
	DominantIncident string  `json:"dominant_incident"`
	Suggestion       string  `json:"suggestion"`
	Rank             string  `json:"rank"`
}
