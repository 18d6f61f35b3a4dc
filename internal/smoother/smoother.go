package smoother

import (
	"strings"

	"injuryguard-client/internal/models"
)

// SmoothingFactor 平滑系数 α：渲染骨架跟随原始数据的速度
const SmoothingFactor = 0.45

// LandmarkNames MediaPipe 33 点骨架的关键点名称（与分析服务下发顺序一致）
var LandmarkNames = []string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow",
	"right_elbow", "left_wrist", "right_wrist",
	"left_pinky", "right_pinky", "left_index",
	"right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel",
	"right_heel", "left_foot_index", "right_foot_index",
}

// skeletonConnections 渲染用骨架连线（同时定义关节的相邻关系）
var skeletonConnections = [][2]string{
	{"left_shoulder", "right_shoulder"},
	{"left_shoulder", "left_elbow"}, {"left_elbow", "left_wrist"},
	{"right_shoulder", "right_elbow"}, {"right_elbow", "right_wrist"},
	{"left_shoulder", "left_hip"}, {"right_shoulder", "right_hip"},
	{"left_hip", "right_hip"},
	{"left_hip", "left_knee"}, {"left_knee", "left_ankle"},
	{"right_hip", "right_knee"}, {"right_knee", "right_ankle"},
}

// adjacency 由骨架连线推导出的相邻关节表
var adjacency = buildAdjacency()

func buildAdjacency() map[string][]string {
	adj := make(map[string][]string)
	for _, conn := range skeletonConnections {
		adj[conn[0]] = append(adj[conn[0]], conn[1])
		adj[conn[1]] = append(adj[conn[1]], conn[0])
	}
	return adj
}

// Connections 返回渲染用骨架连线表
func Connections() [][2]string {
	return skeletonConnections
}

// Smoother 骨架时间平滑器
// 唯一的保留状态是上一帧的平滑结果，对外不可见
type Smoother struct {
	prev []models.Landmark
}

// NewSmoother 创建平滑器
func NewSmoother() *Smoother {
	return &Smoother{}
}

// Apply 对最新的原始关键点做时间平滑，返回可直接渲染的关键点
//   - 无历史或关键点数量变化（跟踪重新捕获）时直接采用原始值，避免跨检测的插值伪影
//   - 否则位置分量按 α=0.45 线性插值；visibility 始终取最新原始值
func (s *Smoother) Apply(raw []models.Landmark) []models.Landmark {
	if len(raw) == 0 {
		s.prev = nil
		return nil
	}
	if s.prev == nil || len(s.prev) != len(raw) {
		s.prev = make([]models.Landmark, len(raw))
		copy(s.prev, raw)
	} else {
		for i := range raw {
			s.prev[i].X += SmoothingFactor * (raw[i].X - s.prev[i].X)
			s.prev[i].Y += SmoothingFactor * (raw[i].Y - s.prev[i].Y)
			s.prev[i].Z += SmoothingFactor * (raw[i].Z - s.prev[i].Z)
			s.prev[i].Visibility = raw[i].Visibility
		}
	}
	out := make([]models.Landmark, len(s.prev))
	copy(out, s.prev)
	return out
}

// Reset 清除保留状态（会话开始时调用）
func (s *Smoother) Reset() {
	s.prev = nil
}

// DangerJoints 计算渲染时需要标红的关节集合（仅用于显示着色）
// 判定条件：关节名称所属区域出现在任一姿态警告的 joint 字段，
// 或关节本身/相邻关节的名称是问题描述文本的子串（大小写不敏感）
func DangerJoints(alerts []models.PostureAlert, issues []string) map[string]bool {
	danger := make(map[string]bool)
	issueText := strings.ToLower(strings.Join(issues, " "))

	for _, name := range LandmarkNames {
		if jointInDanger(name, alerts, issueText) {
			danger[name] = true
		}
	}
	return danger
}

func jointInDanger(name string, alerts []models.PostureAlert, issueText string) bool {
	for _, pa := range alerts {
		joint := strings.ToLower(pa.Joint)
		if joint != "" && strings.Contains(name, joint) {
			return true
		}
	}
	if issueText == "" {
		return false
	}
	if strings.Contains(issueText, readable(name)) {
		return true
	}
	for _, adj := range adjacency[name] {
		if strings.Contains(issueText, readable(adj)) {
			return true
		}
	}
	return false
}

// readable 把 "left_knee" 转为问题文本中出现的 "left knee" 形式
func readable(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
