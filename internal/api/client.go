package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HealthResponse /api/health 响应
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// sportsResponse /api/sports 响应
type sportsResponse struct {
	Sports []SportInfo `json:"sports"`
}

// SportInfo 运动类型信息
type SportInfo struct {
	Sport       string   `json:"sport"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Injuries    []string `json:"injuries"`
}

// alertHistoryResponse /api/alerts/history 响应
type alertHistoryResponse struct {
	Alerts []ServerAlert `json:"alerts"`
}

// ServerAlert 服务端侧的报警历史条目
type ServerAlert struct {
	Level               string   `json:"level"`
	RiskScore           float64  `json:"risk_score"`
	Message             string   `json:"message"`
	InjuryType          string   `json:"injury_type"`
	ContributingFactors []string `json:"contributing_factors"`
	RecommendedAction   string   `json:"recommended_action"`
	Timestamp           float64  `json:"timestamp"`
}

// Client 分析服务 REST 客户端（健康检查、运动列表、服务端报警历史）
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建 REST 客户端
func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// Health 探测分析服务可用性
func (c *Client) Health() (*HealthResponse, error) {
	var result HealthResponse
	resp, err := c.httpClient.R().
		SetResult(&result).
		Get("/api/health")
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("health check returned status %d", resp.StatusCode())
	}
	return &result, nil
}

// Sports 获取服务端支持的运动类型列表
func (c *Client) Sports() ([]SportInfo, error) {
	var result sportsResponse
	resp, err := c.httpClient.R().
		SetResult(&result).
		Get("/api/sports")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sports: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sports request returned status %d", resp.StatusCode())
	}
	return result.Sports, nil
}

// alertHistoryLimit 向服务端请求的报警历史条数（与本地报警日志容量一致）
const alertHistoryLimit = 50

// AlertHistory 获取服务端保存的报警历史
func (c *Client) AlertHistory() ([]ServerAlert, error) {
	var result alertHistoryResponse
	resp, err := c.httpClient.R().
		SetResult(&result).
		SetQueryParam("limit", strconv.Itoa(alertHistoryLimit)).
		Get("/api/alerts/history")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alert history: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alert history request returned status %d", resp.StatusCode())
	}
	return result.Alerts, nil
}
