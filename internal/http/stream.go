package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/notify"
	echo "github.com/labstack/echo/v4"
	"nhooyr.io/websocket"
)

const wsWriteTimeout = 10 * time.Second

// Subscriber opens a per-tenant event feed.
type Subscriber interface {
	Subscribe(ctx context.Context, tenantID string) (notify.Subscription, error)
}

type streamEvent struct {
	model.Envelope
	Status string `json:"status,omitempty"`
}

// streamHandler upgrades to a WebSocket and forwards the tenant's change
// events until either side goes away. Events are hints to re-fetch.
func streamHandler(sub Subscriber) echo.HandlerFunc {
	return func(c echo.Context) error {
		if sub == nil {
			return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "unavailable", Description: "event stream is not configured"})
		}
		tenantID, _ := middleware.TenantIDFromCtx(c)
		surface := surfaceOf(c)

		feed, err := sub.Subscribe(c.Request().Context(), tenantID)
		if err != nil {
			c.Logger().Errorf("stream subscribe failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "unavailable", Description: "event stream unavailable"})
		}
		defer feed.Close()

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
		if err != nil {
			return nil
		}
		defer conn.Close(websocket.StatusNormalClosure, "stream closed")

		// the client never sends; CloseRead cancels ctx when it disconnects
		ctx := conn.CloseRead(c.Request().Context())
		if err := forwardEvents(ctx, conn, feed, surface); err != nil {
			if websocket.CloseStatus(err) == -1 {
				_ = conn.Close(websocket.StatusInternalError, "stream error")
			}
		}
		return nil
	}
}

func forwardEvents(ctx context.Context, conn *websocket.Conn, feed notify.Subscription, surface model.Surface) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-feed.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, env, surface); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, env model.Envelope, surface model.Surface) error {
	ev := streamEvent{Envelope: env}
	if env.Status != "" {
		ev.Status = env.Status.Label(surface)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
