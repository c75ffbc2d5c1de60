package record

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/websocket"

	"github.com/hoshigame/gomoku-online/internal/platform/errors"
)

const heartbeatInterval = 25 * time.Second

// frame is the wire envelope for every feed message in both directions.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changeEnvelope carries one accepted insert or update for a subscribed row.
type changeEnvelope struct {
	Data struct {
		Type   string `json:"type"`
		Record Record `json:"record"`
	} `json:"data"`
}

type joinConfig struct {
	Config struct {
		PostgresChanges []changeFilter `json:"postgres_changes"`
	} `json:"config"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter"`
}

type subscription struct {
	conn *websocket.Conn
	done chan struct{}
}

// WSFeed subscribes to record changes over a websocket. Each record id has
// at most one live channel; re-subscribing replaces the previous one.
type WSFeed struct {
	wsURL  string
	origin string
	clock  clockwork.Clock

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewWSFeed creates a feed client for the store at baseURL.
func NewWSFeed(baseURL, anonKey string, clock clockwork.Clock) *WSFeed {
	base := strings.TrimRight(baseURL, "/")
	ws := base
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return &WSFeed{
		wsURL:  fmt.Sprintf("%s/realtime/v1/websocket?apikey=%s&vsn=1.0.0", ws, anonKey),
		origin: base,
		clock:  clock,
		subs:   make(map[string]*subscription),
	}
}

func topicFor(id string) string {
	return fmt.Sprintf("realtime:public:%s:id=eq.%s", Table, id)
}

// Subscribe opens a change channel for one record id. Every accepted
// insert or update for that row invokes onChange with the new record.
func (f *WSFeed) Subscribe(id string, onChange func(Record)) error {
	conn, err := websocket.Dial(f.wsURL, "", f.origin)
	if err != nil {
		return errors.Wrap(errors.CodeBackendRequest, "dial change feed", err)
	}

	var cfg joinConfig
	cfg.Config.PostgresChanges = []changeFilter{{
		Event:  "*",
		Schema: "public",
		Table:  Table,
		Filter: "id=eq." + id,
	}}
	payload, err := json.Marshal(cfg)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(errors.CodeBackendRequest, "encode join payload", err)
	}
	join := frame{
		Topic:   topicFor(id),
		Event:   "phx_join",
		Payload: payload,
		Ref:     uuid.NewString(),
	}
	if err := websocket.JSON.Send(conn, join); err != nil {
		_ = conn.Close()
		return errors.Wrap(errors.CodeBackendRequest, "join change feed", err)
	}

	sub := &subscription{conn: conn, done: make(chan struct{})}

	f.mu.Lock()
	if prev, ok := f.subs[id]; ok {
		prev.close()
	}
	f.subs[id] = sub
	f.mu.Unlock()

	go f.readLoop(id, sub, onChange)
	go f.heartbeatLoop(sub)
	return nil
}

func (f *WSFeed) readLoop(id string, sub *subscription, onChange func(Record)) {
	for {
		var msg frame
		if err := websocket.JSON.Receive(sub.conn, &msg); err != nil {
			select {
			case <-sub.done:
			default:
				log.Printf("change feed for %s closed: %v", id, err)
			}
			return
		}
		if msg.Event != "postgres_changes" {
			continue
		}
		var change changeEnvelope
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			log.Printf("change feed for %s: bad payload: %v", id, err)
			continue
		}
		if change.Data.Record.ID == "" {
			continue
		}
		onChange(change.Data.Record)
	}
}

func (f *WSFeed) heartbeatLoop(sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case <-f.clock.After(heartbeatInterval):
		}
		beat := frame{
			Topic:   "phoenix",
			Event:   "heartbeat",
			Payload: json.RawMessage(`{}`),
			Ref:     uuid.NewString(),
		}
		if err := websocket.JSON.Send(sub.conn, beat); err != nil {
			return
		}
	}
}

func (sub *subscription) close() {
	select {
	case <-sub.done:
		return
	default:
	}
	close(sub.done)
	_ = sub.conn.Close()
}

// UnsubscribeAll tears down every open channel. Used on session teardown.
func (f *WSFeed) UnsubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sub := range f.subs {
		sub.close()
		delete(f.subs, id)
	}
}
