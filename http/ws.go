package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"newscheck/ml"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsRequest 客户端消息
type wsRequest struct {
	ID   string  `json:"id"`
	Text *string `json:"text"`
}

// wsResponse 服务端响应，字段与 /predict 一致
type wsResponse struct {
	ID string `json:"id,omitempty"`
	*ml.Prediction
	Error string `json:"error,omitempty"`
}

// wsClient WebSocket客户端
type wsClient struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
	ctx      context.Context
	cancel   context.CancelFunc
}

// wsClients 活跃连接，关闭服务器时统一断开
var wsClients = struct {
	sync.Mutex
	m map[*wsClient]struct{}
}{m: make(map[*wsClient]struct{})}

// RegisterWebSocketHandlers 注册实时预测端点
func RegisterWebSocketHandlers(mux *http.ServeMux, config ServerConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if originAllowed(config.AllowedOrigins, origin) {
				return true
			}
			return sameOrigin(r, origin)
		},
	}
	readLimit := config.MaxBodyBytes
	if readLimit <= 0 {
		readLimit = DefaultServerConfig().MaxBodyBytes
	}

	mux.HandleFunc("GET /ws/predict", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}
		conn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(context.Background())
		client := &wsClient{
			conn:     conn,
			send:     make(chan []byte, 16),
			clientID: uuid.NewString(),
			ctx:      ctx,
			cancel:   cancel,
		}
		wsClients.Lock()
		wsClients.m[client] = struct{}{}
		wsClients.Unlock()
		logger.Debug("WebSocket client connected", zap.String("client_id", client.clientID))

		go client.writePump()
		go client.readPump()
	})
}

func sameOrigin(r *http.Request, origin string) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// closeWebSockets 断开所有WebSocket连接
func closeWebSockets() {
	wsClients.Lock()
	defer wsClients.Unlock()
	for client := range wsClients.m {
		client.cancel()
	}
}

// readPump WebSocket读取泵
func (c *wsClient) readPump() {
	defer func() {
		c.cancel()
		wsClients.Lock()
		delete(wsClients.m, c)
		wsClients.Unlock()
		close(c.send)
		logger.Debug("WebSocket client disconnected", zap.String("client_id", c.clientID))
	}()

	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.String("client_id", c.clientID), zap.Error(err))
			}
			return
		}

		var req wsRequest
		resp := wsResponse{}
		if err := json.Unmarshal(data, &req); err != nil {
			resp.Error = "invalid message"
		} else if req.Text == nil {
			resp.ID = req.ID
			resp.Error = errNoTextData
		} else {
			resp.ID = req.ID
			result, err := predict(c.ctx, *req.Text)
			if err != nil {
				_, resp.Error = predictionError(err)
			} else {
				resp.Prediction = &result
			}
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			logger.Error("Failed to encode WebSocket response", zap.Error(err))
			continue
		}
		select {
		case c.send <- payload:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump WebSocket写入泵
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket write error", zap.String("client_id", c.clientID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
