package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-registration-service/internal/app"
)

// FeedHandler streams newly recorded submissions to admin dashboards over a
// websocket.
type FeedHandler struct {
	feed     *app.SubmissionFeed
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewFeedHandler(feed *app.SubmissionFeed, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{
		feed:   feed,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type feedEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ServeWS upgrades the request and streams submission events until the client
// disconnects.
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe()
	defer cancel()

	// Confirm the subscription is live before any event can be missed.
	if err := conn.WriteJSON(feedEvent{Type: "connected"}); err != nil {
		return
	}

	// Reader goroutine only watches for the client closing the connection;
	// clients send nothing meaningful on this feed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(feedEvent{Type: "submission", Payload: entry}); err != nil {
				h.logger.Warn("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}
