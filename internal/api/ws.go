package api

import (
	"net/http"

	"github.com/cpduel/cpduel/internal/database"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleMatchFeed streams a match's live feed over a websocket. A late
// subscriber first receives the feed history, then live events follow.
func (h *Handler) handleMatchFeed(c *gin.Context) {
	matchID := c.Param("id")

	if _, ok := h.arena.Get(matchID); !ok {
		if _, err := database.GetMatch(h.db, matchID); err != nil {
			c.String(http.StatusNotFound, "match not found")
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.broker.Subscribe(matchID)
	defer unsubscribe()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				zap.S().Warnf("error writing to websocket: %v", err)
				return
			}
		}
		// Topic closed: the match was abandoned or evicted.
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed closed"))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Infof("websocket unexpected close error: %v", err)
			}
			break
		}
	}
	unsubscribe()
	<-clientClosed
	zap.S().Infof("feed connection closed for match %s", matchID)
}
