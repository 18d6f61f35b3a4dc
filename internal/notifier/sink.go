package notifier

import "go.uber.org/zap"

// LogSink 把播报落为结构化日志的输出端实现
// 没有接入真实语音合成引擎时的默认 Sink；播报即时完成
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志输出端
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Speak 记录播报文本并立即完成
func (s *LogSink) Speak(text string, done func()) {
	s.logger.Info("Announce", zap.String("text", text))
	done()
}

// Cancel 无进行中的播报可取消，no-op
func (s *LogSink) Cancel() {}

// Chime 记录提示音
func (s *LogSink) Chime() {
	s.logger.Info("Chime")
}
