package controllers

import (
	"net/http"
	"strings"
	"time"

	"zapdesk/feed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var realtimeTables = map[string]bool{
	"instances":     true,
	"conversations": true,
	"messages":      true,
}

// Realtime faz o upgrade para websocket e transmite as mudanças do tenant.
// GET /api/realtime?table=messages&conversation_id=...&type=INSERT
func Realtime(hub *feed.Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		tenantID, ok := GetTenant(c)
		if !ok {
			RespondError(c, "User has no company", http.StatusForbidden)
			return
		}

		filter := feed.Filter{
			Table:          strings.ToLower(strings.TrimSpace(c.Query("table"))),
			Type:           feed.ChangeType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
			ConversationID: strings.TrimSpace(c.Query("conversation_id")),
		}
		if filter.Table != "" && !realtimeTables[filter.Table] {
			RespondError(c, "table inválida: "+filter.Table, http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// o upgrader já respondeu ao cliente
			return
		}

		sub := hub.Subscribe(tenantID, filter)
		zap.L().Debug("realtime: subscribed", zap.String("tenant_id", tenantID), zap.String("table", filter.Table))

		go readPump(conn, sub)
		writePump(conn, sub)
	}
}

// readPump só consome pongs e detecta o fechamento pelo cliente.
func readPump(conn *websocket.Conn, sub *feed.Subscription) {
	defer sub.Close()
	conn.SetReadLimit(8 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *feed.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case change, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
