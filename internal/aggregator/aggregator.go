package aggregator

import (
	"fmt"
	"time"

	"injuryguard-client/internal/models"
)

// 会话评分等级（按 averageScore 的阶梯函数）
const (
	RankElite     = "S"
	RankExcellent = "A"
	RankGood      = "B"
	RankFair      = "C"
	RankEntry     = "D"
)

// 建议文案
const (
	suggestionRed  = "Schedule a medical assessment before returning to play."
	suggestionSoft = "Review your technique on the flagged movements and ease back in."
	suggestionNone = "Keep up the good form and stay hydrated."
)

// Summarize 把整段会话的风险历史和报警日志归并成一次性摘要
// 历史为空时返回 nil（没有可归并的数据）
func Summarize(
	state *models.SessionState,
	points []models.RiskHistoryPoint,
	records []models.AlertRecord,
	now time.Time,
) *models.SessionSummary {
	if len(points) == 0 {
		return nil
	}

	var sum, peak float64
	for _, p := range points {
		sum += p.Risk
		if p.Risk > peak {
			peak = p.Risk
		}
	}
	mean := sum / float64(len(points))
	averageScore := clamp(100-mean, 0, 100)

	incident, suggestion := dominantIncident(records)

	durationSeconds := int(now.Sub(state.StartTime).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	return &models.SessionSummary{
		DurationSeconds:  durationSeconds,
		DurationLabel:    formatDuration(durationSeconds),
		AverageScore:     averageScore,
		PeakRisk:         peak,
		AlertCount:       len(records),
		DominantIncident: incident,
		Suggestion:       suggestion,
		Rank:             Rank(averageScore),
	}
}

// dominantIncident 确定主导事件：
// 优先取第一条 RED 记录（配较强建议），其次取第一条记录，否则 "none detected"
// 报警日志最新在前，"第一条" 指时间上最早的，即切片末尾方向
func dominantIncident(records []models.AlertRecord) (string, string) {
	var firstRed, first *models.AlertRecord
	for i := len(records) - 1; i >= 0; i-- {
		rec := &records[i]
		if first == nil {
			first = rec
		}
		if rec.Level == models.AlertRed && firstRed == nil {
			firstRed = rec
		}
	}
	switch {
	case firstRed != nil:
		msg := firstRed.Message
		if msg == "" {
			msg = firstRed.InjuryType
		}
		return msg, suggestionRed
	case first != nil:
		return first.Message, suggestionSoft
	default:
		return "none detected", suggestionNone
	}
}

// Rank 按 averageScore 的阶梯函数计算评级
func Rank(averageScore float64) string {
	switch {
	case averageScore >= 95:
		return RankElite
	case averageScore >= 85:
		return RankExcellent
	case averageScore >= 70:
		return RankGood
	case averageScore >= 50:
		return RankFair
	default:
		return RankEntry
	}
}

// formatDuration 渲染为 "2m 5s" 形式；不足一分钟只显示秒
func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
