package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskBand(t *testing.T) {
	assert.Equal(t, "low", RiskBand(0))
	assert.Equal(t, "low", RiskBand(34.9))
	assert.Equal(t, "medium", RiskBand(35))
	assert.Equal(t, "medium", RiskBand(69.9))
	assert.Equal(t, "high", RiskBand(70))
	assert.Equal(t, "high", RiskBand(100))
}

func TestParseSport(t *testing.T) {
	assert.Equal(t, SportFootball, ParseSport("football"))
	assert.Equal(t, SportWeightlifting, ParseSport("weightlifting"))
	assert.Equal(t, SportGeneric, ParseSport("badminton"))
	assert.Equal(t, SportGeneric, ParseSport(""))
}

func TestProjectileHazardApplies(t *testing.T) {
	assert.True(t, ProjectileHazardApplies(SportFootball))
	assert.True(t, ProjectileHazardApplies(SportCricket))
	assert.True(t, ProjectileHazardApplies(SportGeneric))
	assert.False(t, ProjectileHazardApplies(SportWeightlifting))
}

func TestReading_UnmarshalAnalysisResponse(t *testing.T) {
	raw := `{
		"pose_risk": 45.2,
		"injury_probability": 72.8,
		"injury_type": "ACL tear",
		"alert_level": "RED",
		"alert_message": "Critical knee angle",
		"recommended_action": "Stop activity immediately.",
		"contributing_factors": ["knee angle", "fatigue"],
		"fatigue_score": 33.1,
		"object_speed": 42.5,
		"skeleton_landmarks": [[0.5, 0.6, -0.1, 0.99], [0.4, 0.3]],
		"posture_alerts": [
			{"joint": "knee", "side": "left", "message": "Knee hyperextension", "severity": "danger",
			 "angle": 190.2, "safe_min": 60, "safe_max": 180}
		]
	}`

	var reading Reading
	require.NoError(t, json.Unmarshal([]byte(raw), &reading))

	assert.InDelta(t, 72.8, reading.InjuryProbability, 1e-9)
	assert.Equal(t, AlertRed, reading.AlertLevel)
	assert.Equal(t, []string{"knee angle", "fatigue"}, reading.ContributingFactors)

	require.Len(t, reading.SkeletonLandmarks, 2)
	assert.InDelta(t, 0.5, reading.SkeletonLandmarks[0].X, 1e-9)
	assert.InDelta(t, 0.99, reading.SkeletonLandmarks[0].Visibility, 1e-9)
	// 不足四元组的分量按 0 处理
	assert.InDelta(t, 0.3, reading.SkeletonLandmarks[1].Y, 1e-9)
	assert.Zero(t, reading.SkeletonLandmarks[1].Z)
	assert.Zero(t, reading.SkeletonLandmarks[1].Visibility)

	require.Len(t, reading.PostureAlerts, 1)
	assert.Equal(t, SeverityDanger, reading.PostureAlerts[0].Severity)
	assert.InDelta(t, 190.2, reading.PostureAlerts[0].Angle, 1e-9)
}

func TestReading_MissingFieldsDefaultToZero(t *testing.T) {
	var reading Reading
	require.NoError(t, json.Unmarshal([]byte(`{"alert_level":"GREEN"}`), &reading))

	assert.Zero(t, reading.InjuryProbability)
	assert.Zero(t, reading.ObjectSpeed)
	assert.Empty(t, reading.SkeletonLandmarks)
	assert.Empty(t, reading.PostureAlerts)
}

func TestLandmark_MarshalRoundTrip(t *testing.T) {
	l := Landmark{X: 0.1, Y: 0.2, Z: -0.3, Visibility: 0.95}
	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `[0.1, 0.2, -0.3, 0.95]`, string(data))

	var back Landmark
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, l, back)
}

func TestLandmark_UnmarshalRejectsNonArray(t *testing.T) {
	var l Landmark
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &l))
}

func TestFramePayload_WireFormat(t *testing.T) {
	data, err := json.Marshal(FramePayload{
		ImageBase64: "data:image/jpeg;base64,abc",
		Sport:       SportFootball,
		FrameWidth:  640,
		FrameHeight: 480,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"image_base64":"data:image/jpeg;base64,abc","sport":"football","frame_width":640,"frame_height":480}`, string(data))
}
