package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	"github.com/ViksyAsenov/poly-talk/internal/presence"
	"github.com/ViksyAsenov/poly-talk/internal/workerpool"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Command 客户端指令
// join/leave 控制会话房间订阅
type Command struct {
	Action         string `json:"action"`
	ConversationID int64  `json:"conversation_id"`
}

// Client 一条 WebSocket 连接，实现 presence.Session
type Client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	router *presence.Router
	pool   *workerpool.Pool
	logger *slog.Logger

	closeOnce sync.Once
}

// NewClient 创建连接会话
func NewClient(id string, userID int64, conn *websocket.Conn, router *presence.Router, pool *workerpool.Pool, logger *slog.Logger) *Client {
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		router: router,
		pool:   pool,
		logger: logger,
	}
}

// ID 会话标识
func (c *Client) ID() string { return c.id }

// UserID 已认证用户
func (c *Client) UserID() int64 { return c.userID }

// Send 异步写出事件；发送缓冲满则断开连接，由客户端重连拉齐状态
// 会话注销和投递之间存在竞态，关闭后到达的事件静默丢弃
func (c *Client) Send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Failed to marshal push payload", "sessionId", c.id, "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(bus.Envelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error("Failed to marshal push frame", "sessionId", c.id, "event", event, "error", err)
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- frame:
	case <-c.done:
	default:
		c.logger.Warn("Send buffer full, closing slow session", "sessionId", c.id, "userId", c.userID)
		c.Close()
	}
}

// Close 关闭会话，幂等
// send 通道永不关闭，写端只通过 done 感知关闭，避免向已关闭通道发送
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump 读循环：处理 join/leave 指令，连接断开时注销会话
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.router.OnDisconnect(ctx, c.id)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Unexpected connection close", "sessionId", c.id, "userId", c.userID, "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.logger.Warn("Dropping malformed command", "sessionId", c.id, "error", err)
			continue
		}
		c.dispatch(ctx, cmd)
	}
}

// dispatch 指令走工作池，避免参与者校验的数据库往返阻塞读循环
func (c *Client) dispatch(ctx context.Context, cmd Command) {
	switch cmd.Action {
	case "join":
		c.pool.Submit(func() {
			if err := c.router.JoinRoom(ctx, c.id, cmd.ConversationID); err != nil {
				c.logger.Warn("Join room rejected", "sessionId", c.id, "userId", c.userID, "conversationId", cmd.ConversationID, "error", err)
			}
		})
	case "leave":
		c.router.LeaveRoom(c.id, cmd.ConversationID)
	default:
		c.logger.Warn("Unknown command action", "sessionId", c.id, "action", cmd.Action)
	}
}

// writePump 写循环：串行写出帧并按周期发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
