package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/service"
)

// 包级别的 WebSocket 常量。
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// 每个客户端发送通道的缓冲区大小。
	sendBufferSize = 256
)

// Client 代表一条已通过认证的 WebSocket 连接。
// 身份在握手成功时设置，此后不可变。连接的生命周期由
// readPump 驱动：读取退出时触发一次性的注销清理。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	identity service.Identity
	send     chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient 创建一个新的 Client 实例。
func NewClient(h *Hub, conn *websocket.Conn, identity service.Identity) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan []byte, sendBufferSize),
	}
}

// ID 返回连接标识符。
func (c *Client) ID() string { return c.id }

// Identity 返回连接的认证身份。
func (c *Client) Identity() service.Identity { return c.identity }

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// enqueue 非阻塞地把一条出站消息放入发送队列。
// 连接已关闭或队列已满时返回 false，由调用方决定是否记录。
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend 关闭发送通道，幂等。关闭后 writePump 会退出。
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump 把入站事件从 WebSocket 连接泵送到 Hub。
// 退出时无条件执行断开清理：这是清理而不是业务逻辑，
// 任何错误路径都不能跳过它。
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.identity.UserID})

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			logCtx.Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		c.hub.handleEvent(c, message)
	}
}

// writePump 把出站消息从发送队列泵送到 WebSocket 连接，
// 并周期性发送 Ping 保活。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.identity.UserID})

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 发送通道已被注销流程关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logCtx.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logCtx.Debug("Failed to send ping, closing connection")
				return
			}
		}
	}
}
