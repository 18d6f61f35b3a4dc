package relay

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"injuryguard-client/internal/models"
)

// Relay 团队侧报警镜像：把报警记录旁路发布到 MQTT 主题
// 纯出站、尽力而为；发布失败只记日志，不影响遥测处理
type Relay struct {
	client   mqtt.Client
	topic    string
	clientID string
	logger   *zap.Logger
}

// Options MQTT 连接参数
type Options struct {
	Broker   string
	Username string
	Password string
	ClientID string
}

// NewRelay 创建并连接报警镜像
func NewRelay(opts Options, logger *zap.Logger) (*Relay, error) {
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	clientOpts.SetAutoReconnect(true)
	clientOpts.SetCleanSession(true)

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Relay{
		client:   client,
		topic:    fmt.Sprintf("injuryguard/%s/alerts", opts.ClientID),
		clientID: opts.ClientID,
		logger:   logger,
	}, nil
}

// PublishAlert 发布一条报警记录（QoS 0，不阻塞调用方）
func (r *Relay) PublishAlert(record models.AlertRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		r.logger.Warn("Failed to marshal alert record for relay", zap.Error(err))
		return
	}
	// fire-and-forget：不等待 token，失败由 paho 自身日志兜底
	r.client.Publish(r.topic, 0, false, data)
}

// Close 断开 MQTT 连接
func (r *Relay) Close() {
	r.client.Disconnect(250)
}
