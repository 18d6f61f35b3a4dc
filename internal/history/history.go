package history

import (
	"time"

	"github.com/google/uuid"

	"injuryguard-client/internal/models"
)

// 缓冲容量
const (
	RiskHistoryCapacity = 60 // 风险历史采样点上限
	AlertLogCapacity    = 50 // 报警记录上限
)

// RiskHistory 风险历史环形缓冲（按时间先后排列，满 60 淘汰最旧）
type RiskHistory struct {
	points []models.RiskHistoryPoint
}

// NewRiskHistory 创建风险历史缓冲
func NewRiskHistory() *RiskHistory {
	return &RiskHistory{
		points: make([]models.RiskHistoryPoint, 0, RiskHistoryCapacity),
	}
}

// Append 追加一个采样点，超过容量时淘汰最旧的
func (h *RiskHistory) Append(p models.RiskHistoryPoint) {
	h.points = append(h.points, p)
	if len(h.points) > RiskHistoryCapacity {
		h.points = h.points[len(h.points)-RiskHistoryCapacity:]
	}
}

// Points 返回采样点副本（最旧在前）
func (h *RiskHistory) Points() []models.RiskHistoryPoint {
	out := make([]models.RiskHistoryPoint, len(h.points))
	copy(out, h.points)
	return out
}

// Len 当前采样点数量
func (h *RiskHistory) Len() int {
	return len(h.points)
}

// Reset 清空缓冲（会话开始时调用）
func (h *RiskHistory) Reset() {
	h.points = h.points[:0]
}

// AlertLog 报警记录日志（最新在前，满 50 截断最旧）
type AlertLog struct {
	records []models.AlertRecord
}

// NewAlertLog 创建报警日志
func NewAlertLog() *AlertLog {
	return &AlertLog{
		records: make([]models.AlertRecord, 0, AlertLogCapacity),
	}
}

// Add 从 Reading 生成报警记录并插入队首，返回生成的记录
func (l *AlertLog) Add(reading *models.Reading, sport string, now time.Time) models.AlertRecord {
	message := reading.AlertMessage
	if message == "" {
		message = reading.InjuryType
	}
	record := models.AlertRecord{
		ID:         uuid.New().String(),
		ReceivedAt: now,
		TimeLabel:  now.Format("15:04:05"),
		Level:      reading.AlertLevel,
		Risk:       reading.InjuryProbability,
		Message:    message,
		InjuryType: reading.InjuryType,
		Action:     reading.RecommendedAction,
		Sport:      sport,
	}
	l.records = append([]models.AlertRecord{record}, l.records...)
	if len(l.records) > AlertLogCapacity {
		l.records = l.records[:AlertLogCapacity]
	}
	return record
}

// Records 返回记录副本（最新在前）
func (l *AlertLog) Records() []models.AlertRecord {
	out := make([]models.AlertRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len 当前记录数量
func (l *AlertLog) Len() int {
	return len(l.records)
}

// Reset 清空日志（会话开始时调用）
func (l *AlertLog) Reset() {
	l.records = l.records[:0]
}
