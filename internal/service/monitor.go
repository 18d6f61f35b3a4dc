package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"injuryguard-client/internal/aggregator"
	"injuryguard-client/internal/api"
	"injuryguard-client/internal/capture"
	"injuryguard-client/internal/channel"
	"injuryguard-client/internal/config"
	"injuryguard-client/internal/history"
	"injuryguard-client/internal/models"
	"injuryguard-client/internal/notifier"
	"injuryguard-client/internal/processor"
	"injuryguard-client/internal/relay"
	"injuryguard-client/internal/report"
	"injuryguard-client/internal/smoother"
)

// 控制命令类型
type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdMute
	cmdSport
)

type command struct {
	kind  commandKind
	muted bool
	sport string
	reply chan *models.SessionSummary
}

// MonitorService 监测客户端服务
// 所有共享状态（会话状态、风险历史、报警日志）只在 Run 的事件循环
// goroutine 上变更：入站消息和用户控制命令在同一循环内交错执行
type MonitorService struct {
	cfg       *config.Config
	logger    *zap.Logger
	sessionID string

	apiClient   *api.Client
	channel     *channel.Channel
	transmitter *capture.Transmitter
	dispatcher  *notifier.Dispatcher
	processor   *processor.Processor
	riskHist    *history.RiskHistory
	alertLog    *history.AlertLog
	smoother    *smoother.Smoother
	relay       *relay.Relay

	state     *models.SessionState
	streaming bool
	sport     atomic.Value // string，帧发送器跨 goroutine 读取

	msgCh chan []byte
	cmdCh chan command
}

// NewMonitorService 创建监测服务并完成组件装配
func NewMonitorService(
	cfg *config.Config,
	source capture.Source,
	sink notifier.Sink,
	dialer channel.Dialer,
	logger *zap.Logger,
) (*MonitorService, error) {
	s := &MonitorService{
		cfg:       cfg,
		logger:    logger,
		sessionID: uuid.New().String(),
		apiClient: api.NewClient(cfg.Server.APIURL, logger),
		riskHist:  history.NewRiskHistory(),
		alertLog:  history.NewAlertLog(),
		smoother:  smoother.NewSmoother(),
		msgCh:     make(chan []byte, 64),
		cmdCh:     make(chan command, 16),
	}
	s.sport.Store(models.ParseSport(cfg.Capture.Sport))

	s.dispatcher = notifier.NewDispatcher(sink, notifier.Options{
		PostureCooldown: time.Duration(cfg.Notify.PostureCooldownMs) * time.Millisecond,
		CoachCooldown:   time.Duration(cfg.Notify.CoachCooldownMs) * time.Millisecond,
		HazardCooldown:  time.Duration(cfg.Notify.HazardCooldownMs) * time.Millisecond,
	}, logger)

	s.processor = processor.NewProcessor(s.riskHist, s.alertLog, s.dispatcher, s.smoother, logger)

	s.channel = channel.NewChannel(cfg.Server.WSURL, dialer, func(payload []byte) {
		// 入站消息按到达顺序进入事件循环
		s.msgCh <- payload
	}, logger)
	s.channel.SetStateListener(func(state channel.State) {
		logger.Info("Channel state changed", zap.String("state", state.String()))
	})

	s.transmitter = capture.NewTransmitter(
		source,
		s.channel,
		time.Duration(cfg.Capture.IntervalMs)*time.Millisecond,
		func() string { return s.sport.Load().(string) },
		logger,
	)

	if cfg.Relay.Broker != "" {
		clientID := cfg.Relay.ClientID
		if clientID == "" {
			clientID = "injuryguard-" + s.sessionID[:8]
		}
		r, err := relay.NewRelay(relay.Options{
			Broker:   cfg.Relay.Broker,
			Username: cfg.Relay.Username,
			Password: cfg.Relay.Password,
			ClientID: clientID,
		}, logger)
		if err != nil {
			// 镜像是旁路能力，连不上不影响监测
			logger.Warn("Alert relay unavailable", zap.Error(err))
		} else {
			s.relay = r
			s.processor.SetAlertHook(r.PublishAlert)
		}
	}

	return s, nil
}

// Run 事件循环：入站遥测、控制命令、上下文取消
func (s *MonitorService) Run(ctx context.Context) error {
	s.logger.Info("Monitor service started", zap.String("session_id", s.sessionID))
	for {
		select {
		case <-ctx.Done():
			if s.streaming {
				s.handleStop(nil)
			}
			s.logger.Info("Monitor service stopped")
			return nil
		case payload := <-s.msgCh:
			if s.streaming {
				s.processor.ProcessRaw(payload, s.state)
			}
		case cmd := <-s.cmdCh:
			s.handleCommand(cmd)
		}
	}
}

// Stop 释放出站资源（进程退出时调用）
func (s *MonitorService) Stop() {
	if s.relay != nil {
		s.relay.Close()
	}
}

// StartStreaming 请求开始一次监测会话
func (s *MonitorService) StartStreaming() {
	s.cmdCh <- command{kind: cmdStart}
}

// StopStreaming 请求结束会话，返回会话摘要（无数据时为 nil）
func (s *MonitorService) StopStreaming() *models.SessionSummary {
	reply := make(chan *models.SessionSummary, 1)
	s.cmdCh <- command{kind: cmdStop, reply: reply}
	return <-reply
}

// SetMuted 设置全局静音
func (s *MonitorService) SetMuted(muted bool) {
	s.cmdCh <- command{kind: cmdMute, muted: muted}
}

// SetSport 切换运动类型
func (s *MonitorService) SetSport(sport string) {
	s.cmdCh <- command{kind: cmdSport, sport: sport}
}

// ConnectionState 当前通道状态（连接状态指示用）
func (s *MonitorService) ConnectionState() channel.State {
	return s.channel.State()
}

// ServerAlertHistory 拉取服务端保存的报警历史
// 本地报警日志只覆盖当前会话，跨会话回看走服务端
func (s *MonitorService) ServerAlertHistory() ([]api.ServerAlert, error) {
	return s.apiClient.AlertHistory()
}

func (s *MonitorService) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdStart:
		s.handleStart()
	case cmdStop:
		s.handleStop(cmd.reply)
	case cmdMute:
		if s.state != nil {
			s.state.Muted = cmd.muted
		}
		s.dispatcher.SetMuted(cmd.muted)
	case cmdSport:
		sport := models.ParseSport(cmd.sport)
		s.sport.Store(sport)
		if s.state != nil {
			s.state.Sport = sport
		}
		// 运动类型切换单独下发控制消息，不携带图像
		s.channel.Send(models.SportPayload{Sport: sport})
		s.logger.Info("Sport changed", zap.String("sport", sport))
	}
}

// handleStart 开始会话：重置缓冲，建立通道，启动帧发送
func (s *MonitorService) handleStart() {
	if s.streaming {
		return
	}

	// 预检在旁路 goroutine 上进行：失败只降级为日志，
	// 不让慢响应的后端卡住事件循环（重连机制会继续争取连接）
	go s.preflight(s.sport.Load().(string))

	s.riskHist.Reset()
	s.alertLog.Reset()
	s.smoother.Reset()
	s.dispatcher.Reset()

	s.state = &models.SessionState{
		Sport:     s.sport.Load().(string),
		StartTime: time.Now(),
	}
	s.dispatcher.SetMuted(false)

	s.channel.Connect()
	s.transmitter.Start()
	s.streaming = true
	s.logger.Info("Streaming started",
		zap.String("sport", s.state.Sport),
		zap.String("session_id", s.sessionID),
	)
}

// preflight 探测分析服务并校验配置的运动类型是否受支持
func (s *MonitorService) preflight(sport string) {
	if _, err := s.apiClient.Health(); err != nil {
		s.logger.Warn("Analysis service health check failed", zap.Error(err))
		return
	}
	sports, err := s.apiClient.Sports()
	if err != nil {
		s.logger.Warn("Failed to fetch supported sports", zap.Error(err))
		return
	}
	for _, info := range sports {
		if info.Sport == sport {
			return
		}
	}
	s.logger.Warn("Configured sport is not in the server-supported list",
		zap.String("sport", sport))
}

// handleStop 结束会话：停发帧，关通道，取消播报，归并摘要
func (s *MonitorService) handleStop(reply chan *models.SessionSummary) {
	if !s.streaming {
		if reply != nil {
			reply <- nil
		}
		return
	}

	s.transmitter.Stop()
	s.channel.Close()
	s.dispatcher.CancelInFlight()
	s.streaming = false

	summary := aggregator.Summarize(s.state, s.riskHist.Points(), s.alertLog.Records(), time.Now())
	if summary != nil {
		s.logger.Info("Session summary",
			zap.String("duration", summary.DurationLabel),
			zap.Float64("average_score", summary.AverageScore),
			zap.Float64("peak_risk", summary.PeakRisk),
			zap.Int("alert_count", summary.AlertCount),
			zap.String("dominant_incident", summary.DominantIncident),
			zap.String("rank", summary.Rank),
		)
		if s.cfg.ReportDir != "" {
			path, err := report.WriteSessionReport(s.cfg.ReportDir, s.sessionID, summary, s.alertLog.Records())
			if err != nil {
				s.logger.Warn("Failed to write session report", zap.Error(err))
			} else {
				s.logger.Info("Session report written", zap.String("path", path))
			}
		}
	}

	if reply != nil {
		reply <- summary
	}
}
