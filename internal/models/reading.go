package models

import "encoding/json"

// 报警等级（与分析服务保持一致）
const (
	AlertGreen  = "GREEN"
	AlertYellow = "YELLOW"
	AlertRed    = "RED"
)

// 姿态警告严重度
const (
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

// 风险分档阈值（所有百分比类字段统一使用）
const (
	BandMediumThreshold = 35
	BandHighThreshold   = 70
)

// RiskBand 风险分档："low" / "medium" / "high"
// 缺失的数值字段按 0 处理，落在 low 档
func RiskBand(value float64) string {
	switch {
	case value >= BandHighThreshold:
		return "high"
	case value >= BandMediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// Reading 一条入站遥测消息（分析服务的单帧分析结果）
// 字段名与服务端 AnalysisResponse 保持一致；缺失字段解码后为零值
type Reading struct {
	PoseRisk            float64            `json:"pose_risk"`
	FacialStress        float64            `json:"facial_stress"`
	ObjectRisk          float64            `json:"object_risk"`
	InjuryProbability   float64            `json:"injury_probability"` // 综合风险 0-100
	InjuryType          string             `json:"injury_type"`
	TimeHorizon         string             `json:"time_horizon"`
	AlertLevel          string             `json:"alert_level"`
	AlertMessage        string             `json:"alert_message"`
	ContributingFactors []string           `json:"contributing_factors"`
	RecommendedAction   string             `json:"recommended_action"`
	JointAngles         map[string]float64 `json:"joint_angles"`
	Asymmetry           map[string]float64 `json:"asymmetry"`
	FatigueScore        float64            `json:"fatigue_score"`
	SkeletonLandmarks   []Landmark         `json:"skeleton_landmarks"`
	FaceDetected        bool               `json:"face_detected"`
	ObjectSpeed         float64            `json:"object_speed"` // km/h
	Issues              []string           `json:"issues"`
	PostureAlerts       []PostureAlert     `json:"posture_alerts"`
}

// PostureAlert 姿态警告（针对具体关节角度）
type PostureAlert struct {
	Joint    string  `json:"joint"`
	Side     string  `json:"side"` // left / right / center
	Message  string  `json:"message"`
	Severity string  `json:"severity"` // warning / danger
	Angle    float64 `json:"angle"`
	SafeMin  float64 `json:"safe_min"`
	SafeMax  float64 `json:"safe_max"`
}

// Landmark 人体骨架关键点（MediaPipe 33 点）
// 服务端以 [x, y, z, visibility] 四元组数组下发
type Landmark struct {
	X          float64
	Y          float64
	Z          float64
	Visibility float64
}

// UnmarshalJSON 从四元组数组解码；长度不足的分量按 0 处理
func (l *Landmark) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	*l = Landmark{}
	if len(vals) > 0 {
		l.X = vals[0]
	}
	if len(vals) > 1 {
		l.Y = vals[1]
	}
	if len(vals) > 2 {
		l.Z = vals[2]
	}
	if len(vals) > 3 {
		l.Visibility = vals[3]
	}
	return nil
}

// MarshalJSON 编码回四元组数组（与服务端格式对称）
func (l Landmark) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{l.X, l.Y, l.Z, l.Visibility})
}
