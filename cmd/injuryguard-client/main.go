package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"injuryguard-client/internal/capture"
	"injuryguard-client/internal/channel"
	"injuryguard-client/internal/config"
	"injuryguard-client/internal/logging"
	"injuryguard-client/internal/notifier"
	"injuryguard-client/internal/service"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "injuryguard-client")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 3. 装配采集源和播报输出端
	// 没有物理摄像头时使用合成帧源联调；真实设备实现 capture.Source 即可替换
	source := capture.NewSyntheticSource(cfg.Capture.FrameWidth, cfg.Capture.FrameHeight)
	sink := notifier.NewLogSink(logger)

	// 4. 创建监测服务
	monitor, err := service.NewMonitorService(cfg, source, sink, channel.NewWebsocketDialer(), logger)
	if err != nil {
		logger.Fatal("Failed to create monitor service", zap.Error(err))
	}
	defer monitor.Stop()

	// 5. 启动事件循环（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceErrChan := make(chan error, 1)
	go func() {
		if err := monitor.Run(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	// 6. 开始流式监测
	monitor.StartStreaming()

	// 7. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		summary := monitor.StopStreaming()
		if summary != nil {
			logger.Info("Final session summary",
				zap.String("duration", summary.DurationLabel),
				zap.Float64("average_score", summary.AverageScore),
				zap.String("rank", summary.Rank),
			)
		}
		cancel()
	case err := <-serviceErrChan:
		logger.Fatal("Service error", zap.Error(err))
	}

	logger.Info("Injury guard client stopped")
}
