package http

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/gigmap/internal/adapters/nats"
	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/usecases"
	"github.com/samirrijal/gigmap/internal/pkg/metrics"
)

// wsMessage is sent by clients.
//
//	{"action":"search","query":"garage","lat":51.5,"lon":-0.1}
//	{"action":"select","handle":"..."}
type wsMessage struct {
	Action string   `json:"action"`
	Query  string   `json:"query"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Handle string   `json:"handle"`
}

type wsSearchResult struct {
	Type       string                      `json:"type"`
	Generation uint64                      `json:"generation"`
	Query      string                      `json:"query"`
	Result     domain.ResolvedCandidateSet `json:"result"`
	Error      string                      `json:"error,omitempty"`
}

type wsSelected struct {
	Type   string              `json:"type"`
	Marker domain.MarkerRecord `json:"marker"`
}

// WebSocketHandler relays marker commands from NATS to the client and serves
// debounced live search and marker selection over the same connection.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := deps.logger().With("remote_addr", c.RemoteAddr().String())
		logger.Debug("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.SubjectMarkersAll, func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				logger.Error("ws marker subscribe failed", "error", err)
				return
			}
			defer func() { _ = sub.Unsubscribe() }()
		}

		var live *usecases.LiveSearch
		if deps.Search != nil {
			live = usecases.NewLiveSearch(deps.Search, deps.SearchDebounce, deps.SearchLimit, logger)
			defer live.Close()
			go func() {
				for res := range live.Results() {
					out := wsSearchResult{Type: "search", Generation: res.Generation, Query: res.Query, Result: res.Set}
					if res.Err != nil {
						out.Error = res.Err.Error()
					}
					_ = writeJSON(out)
				}
			}()
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "search":
				if live == nil {
					_ = writeJSON(map[string]string{"error": "search is not available"})
					continue
				}
				var center domain.Coordinate
				if m.Lat != nil && m.Lon != nil {
					center = domain.Coordinate{Lat: *m.Lat, Lon: *m.Lon}
				}
				live.Submit(m.Query, center)

			case "select":
				rec, ok := findMarker(deps.Markers, domain.MarkerHandle(m.Handle))
				if !ok {
					_ = writeJSON(map[string]string{"error": "unknown marker: " + m.Handle})
					continue
				}
				_ = writeJSON(wsSelected{Type: "selected", Marker: rec})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}
		logger.Debug("ws client disconnected")
	}
}

func findMarker(markers *usecases.MarkerService, handle domain.MarkerHandle) (domain.MarkerRecord, bool) {
	if markers == nil || handle == "" {
		return domain.MarkerRecord{}, false
	}
	for _, rec := range markers.Markers() {
		if rec.Handle == handle {
			return rec, true
		}
	}
	return domain.MarkerRecord{}, false
}
