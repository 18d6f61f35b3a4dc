package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config 客户端配置
type Config struct {
	// 分析服务地址
	Server struct {
		WSURL  string // websocket 分析端点，如 ws://localhost:8000/ws/analyze
		APIURL string // REST 基地址，如 http://localhost:8000
	}

	// 采集与发送配置
	Capture struct {
		IntervalMs  int    // 发送节拍（毫秒），80-150 之间
		Sport       string // 初始运动类型
		FrameWidth  int    // 上报的帧宽度
		FrameHeight int    // 上报的帧高度
	}

	// 通知配置
	Notify struct {
		PostureCooldownMs int // 姿态警告冷却（毫秒）
		CoachCooldownMs   int // 正向激励冷却（毫秒）
		HazardCooldownMs  int // 飞行物警告冷却（毫秒）
	}

	// 团队侧 MQTT 报警镜像（可选，Broker 为空则关闭）
	Relay struct {
		Broker   string
		Username string
		Password string
		ClientID string
	}

	// 会话报告导出目录（可选，为空则不导出）
	ReportDir string

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量 + 默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server.WSURL = getEnv("SERVER_WS_URL", "ws://localhost:8000/ws/analyze")
	cfg.Server.APIURL = getEnv("SERVER_API_URL", "http://localhost:8000")

	cfg.Capture.IntervalMs = getEnvInt("CAPTURE_INTERVAL_MS", 100)
	cfg.Capture.Sport = getEnv("SPORT", "generic")
	cfg.Capture.FrameWidth = getEnvInt("FRAME_WIDTH", 640)
	cfg.Capture.FrameHeight = getEnvInt("FRAME_HEIGHT", 480)

	cfg.Notify.PostureCooldownMs = getEnvInt("POSTURE_COOLDOWN_MS", 5000)
	cfg.Notify.CoachCooldownMs = getEnvInt("COACH_COOLDOWN_MS", 15000)
	cfg.Notify.HazardCooldownMs = getEnvInt("HAZARD_COOLDOWN_MS", 5000)

	cfg.Relay.Broker = getEnv("MQTT_BROKER", "")
	cfg.Relay.Username = getEnv("MQTT_USERNAME", "")
	cfg.Relay.Password = getEnv("MQTT_PASSWORD", "")
	cfg.Relay.ClientID = getEnv("MQTT_CLIENT_ID", "")

	cfg.ReportDir = getEnv("REPORT_DIR", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate 校验关键配置
func (c *Config) validate() error {
	if c.Server.WSURL == "" {
		return fmt.Errorf("SERVER_WS_URL is required")
	}
	// 发送节拍限制在 80-150ms 区间（质量/带宽折衷）
	if c.Capture.IntervalMs < 80 {
		c.Capture.IntervalMs = 80
	}
	if c.Capture.IntervalMs > 150 {
		c.Capture.IntervalMs = 150
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
