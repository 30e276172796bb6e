package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWatch_DeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ws" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"task_completed","task_id":"t1","task":{"_id":"t1","title":"x","completed":true,"project":"p1"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"task_deleted","task_id":"t2"}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", WithToken("tok"))
	var events []Event
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Watch(ctx, func(ev Event) { events = append(events, ev) }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != "task_completed" || events[0].Task == nil || events[0].Task.ProjectID != "p1" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Type != "task_deleted" || events[1].Task != nil || events[1].TaskID != "t2" {
		t.Errorf("unexpected second event %+v", events[1])
	}
}

func TestWatch_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := New(srv.URL).Watch(context.Background(), func(Event) {})
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("want 401 APIError, got %v", err)
	}
}
