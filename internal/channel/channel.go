package channel

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State 会话通道状态
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnectWait
)

// String 状态名（用于日志和状态指示）
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateReconnectWait:
		return "RECONNECT_WAIT"
	default:
		return "CLOSED"
	}
}

// 重连退避参数
const (
	reconnectBaseDelay = 1000 * time.Millisecond
	reconnectMaxDelay  = 10000 * time.Millisecond
)

// sendQueueSize 出站发送队列容量：队列满时丢弃新帧（帧是易逝数据）
const sendQueueSize = 16

// ReconnectDelay 计算第 attempt 次重连的退避时长：min(1000 * 2^attempt, 10000) 毫秒
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := reconnectBaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= reconnectMaxDelay {
			return reconnectMaxDelay
		}
	}
	return delay
}

// Conn 底层连接抽象（*websocket.Conn 直接满足该接口）
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer 连接建立抽象，测试时可替换
type Dialer interface {
	Dial(url string) (Conn, error)
}

// MessageHandler 入站消息处理函数，在读取 goroutine 中按到达顺序同步调用
type MessageHandler func(payload []byte)

// StateListener 状态变更监听（用于连接状态指示）
type StateListener func(state State)

// wsDialer 基于 gorilla/websocket 的生产环境 Dialer
type wsDialer struct{}

func (wsDialer) Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// NewWebsocketDialer 创建默认的 websocket Dialer
func NewWebsocketDialer() Dialer {
	return wsDialer{}
}

// Channel 到分析服务的双向会话通道
// 状态机：CLOSED → CONNECTING → OPEN → CLOSED（正常）
// 或 OPEN → RECONNECT_WAIT → CONNECTING → …（意外断开且用户仍希望保持流式）
type Channel struct {
	url     string
	dialer  Dialer
	handler MessageHandler
	logger  *zap.Logger

	mu             sync.Mutex
	state          State
	conn           Conn
	attempt        int
	desired        bool // 用户期望保持流式传输
	reconnectTimer *time.Timer
	gen            int // 连接代数，用于丢弃过期的拨号/断开回调
	listener       StateListener
	sendCh         chan []byte   // 当前连接的出站队列
	writeQuit      chan struct{} // 关闭时通知写入 goroutine 退出
}

// NewChannel 创建会话通道
func NewChannel(url string, dialer Dialer, handler MessageHandler, logger *zap.Logger) *Channel {
	return &Channel{
		url:     url,
		dialer:  dialer,
		handler: handler,
		logger:  logger,
		state:   StateClosed,
	}
}

// SetStateListener 注册状态变更监听
func (c *Channel) SetStateListener(l StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// State 当前通道状态
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect 建立连接；已处于 CONNECTING 或 OPEN 时为 no-op
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.desired = true
	c.gen++
	gen := c.gen
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.dial(gen)
}

// Send 发送消息；仅在 OPEN 状态有效，其他状态静默丢弃
// fire-and-forget：入队后立即返回，实际写入由写入 goroutine 完成；
// 队列满（对端停读、链路拥塞）时丢弃本条消息，传输中的帧是易逝数据
func (c *Channel) Send(payload interface{}) {
	c.mu.Lock()
	if c.state != StateOpen || c.sendCh == nil {
		c.mu.Unlock()
		return
	}
	sendCh := c.sendCh
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("Failed to marshal outbound payload", zap.Error(err))
		return
	}
	select {
	case sendCh <- data:
	default:
		c.logger.Debug("Send queue full, dropping outbound message")
	}
}

// Close 用户主动关闭：取消挂起的重连，重置退避计数，进入 CLOSED
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.desired = false
	c.gen++
	c.attempt = 0
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.teardownConnLocked()
	c.setStateLocked(StateClosed)
}

// teardownConnLocked 停写入 goroutine、关底层连接、撤掉发送队列（调用方持有锁）
func (c *Channel) teardownConnLocked() {
	if c.writeQuit != nil {
		close(c.writeQuit)
		c.writeQuit = nil
	}
	c.sendCh = nil
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// dial 实际建立连接（在独立 goroutine 中执行，保持调用方响应）
func (c *Channel) dial(gen int) {
	conn, err := c.dialer.Dial(c.url)

	c.mu.Lock()
	if gen != c.gen || !c.desired {
		// 拨号期间用户已停止或通道已重置
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.logger.Warn("Failed to open channel",
			zap.String("url", c.url),
			zap.Int("attempt", c.attempt),
			zap.Error(err),
		)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.attempt = 0 // 成功打开后退避计数归零
	c.sendCh = make(chan []byte, sendQueueSize)
	c.writeQuit = make(chan struct{})
	sendCh, quit := c.sendCh, c.writeQuit
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	c.logger.Info("Channel open", zap.String("url", c.url))
	go c.readPump(conn, gen)
	go c.writePump(conn, sendCh, quit)
}

// writePump 写入循环：串行消费发送队列，写失败即退出
// （读取 goroutine 会感知连接失效并触发重连）
func (c *Channel) writePump(conn Conn, sendCh chan []byte, quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case data := <-sendCh:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Failed to write to channel", zap.Error(err))
				return
			}
		}
	}
}

// readPump 读取循环：按到达顺序同步交付每条入站消息
func (c *Channel) readPump(conn Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(gen, err)
			return
		}
		if c.handler != nil {
			c.handler(data)
		}
	}
}

// handleDrop 意外断开：若用户仍希望流式传输则调度重连
func (c *Channel) handleDrop(gen int, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return // 过期连接的断开事件
	}
	c.teardownConnLocked()
	if !c.desired {
		c.setStateLocked(StateClosed)
		return
	}
	c.logger.Warn("Channel dropped unexpectedly", zap.Error(cause))
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked 按指数退避调度下一次重连（调用方持有锁）
func (c *Channel) scheduleReconnectLocked() {
	delay := ReconnectDelay(c.attempt)
	c.attempt++
	c.setStateLocked(StateReconnectWait)
	c.logger.Info("Scheduling reconnect",
		zap.Duration("delay", delay),
		zap.Int("attempt", c.attempt),
	)

	gen := c.gen
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen || !c.desired || c.state != StateReconnectWait {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(StateConnecting)
		c.mu.Unlock()
		c.dial(gen)
	})
}

// setStateLocked 更新状态并通知监听者（调用方持有锁）
func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.listener != nil {
		c.listener(s)
	}
}
