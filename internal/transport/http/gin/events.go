package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/parkgo/internal/domain"
)

const heartbeatInterval = 15 * time.Second

// LotSubscriber delivers committed lot changes until ctx is done.
type LotSubscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.LotEvent)) error
}

// @Summary  Stream lot changes
// @Description Server-Sent Events; one "lot_changed" event per committed mutation.
// @Produce  text/event-stream
// @Success  200
// @Failure  503 {object} ErrorResponse "events are not configured"
// @Router   /parking_lot/events [get]
func handleLotEvents(sub LotSubscriber, closing <-chan struct{}, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sub == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Code:    "EVENTS_DISABLED",
				Message: "lot events are not configured",
			})
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		events := make(chan domain.LotEvent, 32)
		subErr := make(chan error, 1)

		go func() {
			subErr <- sub.Subscribe(ctx, func(ctx context.Context, ev domain.LotEvent) {
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			})
		}()

		c.Header("Content-Type", "text/event-stream;charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case ev := <-events:
				c.SSEvent("lot_changed", ev)
				c.Writer.Flush()
			case <-heartbeat.C:
				_, _ = c.Writer.WriteString(": ping\n\n")
				c.Writer.Flush()
			case err := <-subErr:
				drain(c, events)
				c.Writer.Flush()
				if err != nil && ctx.Err() == nil {
					logger.Warn("lot event subscription ended", slog.String("error", err.Error()))
				}
				return
			case <-closing:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// drain writes the events that arrived before the subscription ended.
func drain(c *gin.Context, events <-chan domain.LotEvent) {
	for {
		select {
		case ev := <-events:
			c.SSEvent("lot_changed", ev)
		default:
			return
		}
	}
}
