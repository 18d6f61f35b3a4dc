package capture

import (
	"encoding/base64"
	"sync"
	"time"

	"go.uber.org/zap"

	"injuryguard-client/internal/channel"
	"injuryguard-client/internal/models"
)

// Source 采集设备边界：按需给出当前帧
// ok=false 表示设备暂无信号，本次节拍静默跳过
type Source interface {
	Frame() (jpeg []byte, width, height int, ok bool)
}

// Conduit 发送通道抽象（由会话通道实现）
type Conduit interface {
	State() channel.State
	Send(payload interface{})
}

// Transmitter 帧发送器：固定节拍读取最新帧并上送
// 编码和发送都是 fire-and-forget，不会阻塞节拍循环
type Transmitter struct {
	source   Source
	conduit  Conduit
	interval time.Duration
	sport    func() string // 当前运动类型（随会话状态变化）
	logger   *zap.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewTransmitter 创建帧发送器
func NewTransmitter(source Source, conduit Conduit, interval time.Duration, sport func() string, logger *zap.Logger) *Transmitter {
	return &Transmitter{
		source:   source,
		conduit:  conduit,
		interval: interval,
		sport:    sport,
		logger:   logger,
	}
}

// Start 启动节拍循环；重复调用为 no-op
func (t *Transmitter) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go t.run(t.stopCh, t.doneCh)
	t.logger.Info("Frame transmitter started", zap.Duration("interval", t.interval))
}

// Stop 停止节拍循环；返回时保证不再有帧被发送
func (t *Transmitter) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stopCh, doneCh := t.stopCh, t.doneCh
	t.mu.Unlock()

	close(stopCh)
	<-doneCh
	t.logger.Info("Frame transmitter stopped")
}

func (t *Transmitter) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// 停止请求和节拍同时就绪时，停止优先，杜绝停止后的残留发送
			select {
			case <-stopCh:
				return
			default:
			}
			t.transmit()
		}
	}
}

// transmit 读取当前帧并发送；无信号或通道未打开时静默跳过
func (t *Transmitter) transmit() {
	frame, width, height, ok := t.source.Frame()
	if !ok {
		return
	}
	if t.conduit.State() != channel.StateOpen {
		return
	}
	t.conduit.Send(models.FramePayload{
		ImageBase64: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
		Sport:       t.sport(),
		FrameWidth:  width,
		FrameHeight: height,
	})
}
