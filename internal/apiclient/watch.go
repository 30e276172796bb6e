package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/gorilla/websocket"
)

// Event is a live task change pushed by the server.
type Event struct {
	Type   string
	TaskID string
	// Task is nil for deletions.
	Task *models.Task
}

type eventDocument struct {
	Event  string        `json:"event"`
	TaskID string        `json:"task_id"`
	Task   *taskDocument `json:"task"`
}

// Watch streams task events to fn until ctx is cancelled or the connection
// drops. A cancelled context returns nil.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	wsURL, err := websocketURL(c.baseURL + "/ws")
	if err != nil {
		return err
	}
	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("websocket handshake failed: %s", resp.Status)}
		}
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		var doc eventDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			c.log.WithError(err).Warn("skipping malformed event")
			continue
		}
		ev := Event{Type: doc.Event, TaskID: doc.TaskID}
		if doc.Task != nil {
			t := doc.Task.normalize()
			ev.Task = &t
		}
		fn(ev)
	}
}

func websocketURL(httpURL string) (string, error) {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://"), nil
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://"), nil
	default:
		return "", errors.New("api url must start with http:// or https://")
	}
}
