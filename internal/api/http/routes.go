package httpapi

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/sink/sse"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Dashboard is the pipeline surface the HTTP API reads and configures.
type Dashboard interface {
	Snapshot() weather.Snapshot
	Status() weather.Status
	FetchNow(ctx context.Context, query string) (weather.Snapshot, error)
	SetQuery(query string)
	Query() string
	EnableRefresh()
	DisableRefresh()
	RefreshEnabled() bool
	RefreshState() scheduler.State
	CheckReadiness(ctx context.Context) error
}

// History serves recorded snapshots.
type History interface {
	GetLatest(query string) (weather.Snapshot, error)
	GetRange(query string, from, to time.Time) ([]weather.Snapshot, error)
}

// Stream registers live stream clients.
type Stream interface {
	AddClient(clientID string) <-chan sse.Message
	RemoveClient(clientID string)
}

// fetchTimeout bounds a manual fetch: two upstream reads plus the merge.
const fetchTimeout = 25 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dash Dashboard, history History, stream Stream) {
	app.Get("/readyz", func(c *fiber.Ctx) error {
		if err := dash.CheckReadiness(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"snapshot": dash.Snapshot(),
			"status":   dash.Status(),
		})
	})

	v1.Get("/dashboard/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, dash.Query()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := history.GetRange(req.Query, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"query":     req.Query,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Get("/dashboard/history/latest", func(c *fiber.Ctx) error {
		query := strings.TrimSpace(c.Query("query", dash.Query()))
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "query parameter is required")
		}

		snapshot, err := history.GetLatest(query)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for "+query)
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}
		return c.JSON(snapshot)
	})

	v1.Post("/fetch", func(c *fiber.Ctx) error {
		var req fetchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
		defer cancel()

		snapshot, err := dash.FetchNow(ctx, req.Query)
		if err != nil {
			return fiber.NewError(statusForFetchError(err), weather.StatusMessage(strings.TrimSpace(req.Query), err))
		}
		return c.JSON(fiber.Map{
			"snapshot": snapshot,
			"status":   dash.Status(),
		})
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(currentSettings(dash))
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if req.Query != nil {
			dash.SetQuery(*req.Query)
		}
		if req.AutoRefresh != nil {
			if *req.AutoRefresh {
				dash.EnableRefresh()
			} else {
				dash.DisableRefresh()
			}
		}
		return c.JSON(currentSettings(dash))
	})

	v1.Get("/stream", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		clientID := uuid.NewString()
		messages := stream.AddClient(clientID)

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer stream.RemoveClient(clientID)

			// Send the current state first so a new client renders at once.
			initial := sse.Message{Type: sse.TypeSnapshot, Data: dash.Snapshot(), Timestamp: time.Now()}
			if !writeEvent(w, initial) {
				return
			}
			for msg := range messages {
				if !writeEvent(w, msg) {
					return
				}
			}
		})
		return nil
	})
}

func writeEvent(w *bufio.Writer, msg sse.Message) bool {
	payload, err := sse.Format(msg)
	if err != nil {
		return true
	}
	if _, err := w.Write(payload); err != nil {
		return false
	}
	// Flush fails once the client has gone away.
	return w.Flush() == nil
}

// fetchRequest is the manual fetch body.
type fetchRequest struct {
	Query string `json:"query" validate:"required"`
}

// settingsRequest updates the dashboard settings; absent fields are kept.
type settingsRequest struct {
	Query       *string `json:"query" validate:"omitempty,min=1"`
	AutoRefresh *bool   `json:"autoRefresh"`
}

type settings struct {
	Query        string          `json:"query"`
	AutoRefresh  bool            `json:"autoRefresh"`
	RefreshState scheduler.State `json:"refreshState"`
}

func currentSettings(dash Dashboard) settings {
	return settings{
		Query:        dash.Query(),
		AutoRefresh:  dash.RefreshEnabled(),
		RefreshState: dash.RefreshState(),
	}
}

func statusForFetchError(err error) int {
	switch {
	case errors.Is(err, weather.ErrInvalidQuery):
		return fiber.StatusBadRequest
	case errors.Is(err, weather.ErrPartialUpstream):
		return fiber.StatusBadGateway
	case errors.Is(err, weather.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, weather.ErrUnauthorized):
		return fiber.StatusBadGateway
	case errors.Is(err, weather.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, weather.ErrNetwork):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusServiceUnavailable
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Query string    `validate:"required"`
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
}

// bind reads the history parameters. The location defaults to the current
// query when absent.
func (h *historyQuery) bind(c *fiber.Ctx, defaultQuery string) error {
	h.Query = strings.TrimSpace(c.Query("query", defaultQuery))

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
