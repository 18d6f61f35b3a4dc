package channel

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn 测试用连接：可注入入站消息，记录出站写入
// stallWrites=true 时 WriteMessage 一直阻塞到连接被关闭（模拟对端停读）
type fakeConn struct {
	in          chan []byte
	closed      chan struct{}
	once        sync.Once
	stallWrites bool

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.in:
		return 1, msg, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.stallWrites {
		<-c.closed
		return errors.New("connection closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// fakeDialer 测试用 Dialer：按脚本返回连接或失败
type fakeDialer struct {
	mu          sync.Mutex
	conns       []*fakeConn
	fail        bool
	stallWrites bool
}

func (d *fakeDialer) Dial(url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	conn.stallWrites = d.stallWrites
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func TestReconnectDelay_CappedExponentialBackoff(t *testing.T) {
	expected := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond, // 封顶
		10000 * time.Millisecond,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, ReconnectDelay(attempt), "attempt %d", attempt)
	}
}

func TestSend_WhileClosedIsSilentNoop(t *testing.T) {
	dialer := &fakeDialer{}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())

	require.Equal(t, StateClosed, ch.State())
	ch.Send(map[string]string{"sport": "football"})

	// 没有任何网络效应：从未拨号，也没有报错
	assert.Equal(t, 0, dialer.dialCount())
}

func TestConnect_OpensAndDeliversMessagesInOrder(t *testing.T) {
	dialer := &fakeDialer{}
	var mu sync.Mutex
	var received []string
	handler := func(payload []byte) {
		mu.Lock()
		received = append(received, string(payload))
		mu.Unlock()
	}
	ch := NewChannel("ws://test/ws/analyze", dialer, handler, zap.NewNop())
	defer ch.Close()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, 10*time.Millisecond)

	conn := dialer.lastConn()
	require.NotNil(t, conn)
	conn.in <- []byte("first")
	conn.in <- []byte("second")
	conn.in <- []byte("third")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, received)
}

func TestConnect_WhileOpenIsNoop(t *testing.T) {
	dialer := &fakeDialer{}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())
	defer ch.Close()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, 10*time.Millisecond)

	ch.Connect()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestSend_WhileOpenWritesJSON(t *testing.T) {
	dialer := &fakeDialer{}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())
	defer ch.Close()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, 10*time.Millisecond)

	ch.Send(map[string]string{"sport": "cricket"})

	conn := dialer.lastConn()
	require.Eventually(t, func() bool { return conn.writeCount() == 1 }, time.Second, 10*time.Millisecond)
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.JSONEq(t, `{"sport":"cricket"}`, string(conn.writes[0]))
}

func TestSend_StalledWriteDoesNotBlockCallersOrClose(t *testing.T) {
	dialer := &fakeDialer{stallWrites: true}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, 10*time.Millisecond)

	// 对端停读，写入 goroutine 卡在第一条消息上；
	// 后续 Send 只入队或丢弃，绝不在调用方 goroutine 上阻塞
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendQueueSize+8; i++ {
			ch.Send(map[string]string{"sport": "football"})
		}
		_ = ch.State()
		ch.Close()
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Send/State/Close blocked behind a stalled write")
	}
	assert.Equal(t, StateClosed, ch.State())
}

func TestUnexpectedDrop_SchedulesReconnectAndReopens(t *testing.T) {
	dialer := &fakeDialer{}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())
	defer ch.Close()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, 10*time.Millisecond)

	// 模拟服务端断开
	dialer.lastConn().Close()
	require.Eventually(t, func() bool { return ch.State() == StateReconnectWait }, time.Second, 10*time.Millisecond)

	// 首次退避 1000ms 后重新拨号并回到 OPEN
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, dialer.dialCount())
}

func TestClose_SuppressesPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, 10*time.Millisecond)

	dialer.lastConn().Close()
	require.Eventually(t, func() bool { return ch.State() == StateReconnectWait }, time.Second, 10*time.Millisecond)

	// 用户主动停止：挂起的重连不得触发
	ch.Close()
	assert.Equal(t, StateClosed, ch.State())

	time.Sleep(1300 * time.Millisecond)
	assert.Equal(t, StateClosed, ch.State())
	assert.Equal(t, 1, dialer.dialCount())
}

func TestDialFailure_KeepsRetrying(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	ch := NewChannel("ws://test/ws/analyze", dialer, nil, zap.NewNop())
	defer ch.Close()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateReconnectWait }, time.Second, 10*time.Millisecond)

	// 放行拨号后下一次重试应成功打开
	dialer.mu.Lock()
	dialer.fail = false
	dialer.mu.Unlock()

	require.Eventually(t, func() bool { return ch.State() == StateOpen }, 3*time.Second, 20*time.Millisecond)
}
