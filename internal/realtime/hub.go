// Package realtime は行変更イベントのWebSocket配信を提供する。
// PostgreSQLのpg_notifyで発行された変更をリスナーが受信し、
// ハブが購読中のクライアントへ振り分ける。
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait は1メッセージの書き込みタイムアウト。
	writeWait = 10 * time.Second
	// pongWait はクライアントからのpong待ちタイムアウト。
	pongWait = 60 * time.Second
	// pingPeriod はping送信間隔。pongWaitより短くする。
	pingPeriod = (pongWait * 9) / 10
	// sendBufferSize は接続ごとの送信キューサイズ。
	// あふれた接続は切断し、遅いクライアントが配信全体を塞がないようにする。
	sendBufferSize = 32
)

// ChangeEvent はpg_notifyペイロードと同形の行変更イベント。
type ChangeEvent struct {
	Table      string `json:"table"`
	Op         string `json:"op"`
	ID         string `json:"id"`
	ArtistID   string `json:"artist_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

// subscribeRequest はクライアントからの購読メッセージ。
type subscribeRequest struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Table  string `json:"table"`
}

// ConnectionCounter は接続数の変化を記録するインターフェース。
type ConnectionCounter interface {
	RecordRealtimeConnections(count int)
}

// Connection はハブに接続中の1クライアントを表す。
type Connection struct {
	userID string
	ws     *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
	tables map[string]struct{}
}

// trySend はペイロードを送信キューへ積む。キューが一杯なら falseを返す。
// closeSendと同じロックで直列化されるため、閉じたチャネルへの送信は起きない。
// 閉鎖済みの接続への送信は黙って捨てる。
func (c *Connection) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend は送信チャネルを閉じる。2回目以降の呼び出しは何もしない。
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// subscribed は指定テーブルを購読中かどうかを返す。
func (c *Connection) subscribed(table string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tables[table]
	return ok
}

// setSubscription は購読状態を更新する。
func (c *Connection) setSubscription(table string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.tables[table] = struct{}{}
	} else {
		delete(c.tables, table)
	}
}

// Hub はWebSocket接続を管理し、変更イベントを配信する。
type Hub struct {
	logger  *slog.Logger
	counter ConnectionCounter

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// NewHub はHubを生成する。
func NewHub(counter ConnectionCounter, logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		counter: counter,
		conns:   make(map[*Connection]struct{}),
	}
}

// Register はWebSocket接続をハブに登録し、読み書きポンプを開始する。
// 接続が閉じられるまでブロックしない。
func (h *Hub) Register(userID string, ws *websocket.Conn) *Connection {
	conn := &Connection{
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		tables: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()

	h.counter.RecordRealtimeConnections(count)
	h.logger.Info("realtime connection registered", "user_id", userID, "connections", count)

	go h.writePump(conn)
	go h.readPump(conn)

	return conn
}

// unregister は接続をハブから除去して閉じる。
func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	if ok {
		delete(h.conns, conn)
	}
	count := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}

	conn.closeSend()
	conn.ws.Close()
	h.counter.RecordRealtimeConnections(count)
	h.logger.Info("realtime connection unregistered", "user_id", conn.userID, "connections", count)
}

// Dispatch は変更イベントを該当する購読者へ配信する。
// bookingsの変更は当事者(アーティストまたはクライアント)のみに届く。
// artist_profilesの変更は購読中の全クライアントに届く。
func (h *Hub) Dispatch(event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal change event", "error", err)
		return
	}

	h.mu.Lock()
	targets := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		if h.shouldDeliver(conn, event) {
			targets = append(targets, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if !conn.trySend(payload) {
			// 送信キューがあふれた遅いクライアントは切断する
			h.logger.Warn("realtime send buffer full, dropping connection", "user_id", conn.userID)
			go h.unregister(conn)
		}
	}
}

// shouldDeliver はイベントを接続へ配信すべきかどうかを判定する。
func (h *Hub) shouldDeliver(conn *Connection, event ChangeEvent) bool {
	if !conn.subscribed(event.Table) {
		return false
	}
	switch event.Table {
	case "bookings":
		return conn.userID == event.ArtistID || conn.userID == event.CustomerID
	default:
		return true
	}
}

// readPump はクライアントからの購読メッセージとpongを処理する。
func (h *Hub) readPump(conn *Connection) {
	defer h.unregister(conn)

	conn.ws.SetReadLimit(1024)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("realtime read failed", "user_id", conn.userID, "error", err)
			}
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.logger.Warn("invalid realtime message", "user_id", conn.userID, "error", err)
			continue
		}

		switch req.Action {
		case "subscribe":
			conn.setSubscription(req.Table, true)
		case "unsubscribe":
			conn.setSubscription(req.Table, false)
		}
	}
}

// writePump は送信キューのメッセージと定期pingをクライアントへ書き込む。
func (h *Hub) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(conn)
	}()

	for {
		select {
		case message, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown は全接続を閉じる。
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.unregister(conn)
	}
}
