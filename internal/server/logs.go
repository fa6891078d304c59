package server

import (
	"net/http"
	"strconv"

	apierr "memoai-go/internal/errors"
	"memoai-go/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var logStreamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement already happens in the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamLogs upgrades to a WebSocket, backfills history past the client's
// cursor, then keeps the connection registered for live entries.
func (h *handler) streamLogs(c *gin.Context) {
	if h.deps.Broadcaster == nil {
		apierr.AbortWith(c, http.StatusNotFound, "not_configured", "log streaming disabled")
		return
	}

	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)

	conn, err := logStreamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Debug("log stream upgrade failed")
		return
	}

	for _, entry := range h.deps.Broadcaster.History(cursor, 0) {
		if err := conn.WriteJSON(entry); err != nil {
			conn.Close()
			return
		}
	}

	if err := h.deps.Broadcaster.AddClient(conn); err != nil {
		conn.WriteJSON(logging.Entry{Level: "error", Message: err.Error()})
		conn.Close()
		return
	}

	// Reader loop only detects disconnect; clients never send payloads.
	go func() {
		defer h.deps.Broadcaster.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
