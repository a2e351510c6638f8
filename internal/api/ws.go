package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unklstewy/ogn-scope/internal/store"
)

const (
	// defaultStreamInterval is how often a frame is pushed when the
	// client does not ask for a rate
	defaultStreamInterval = 2 * time.Second

	// minStreamInterval floors the requested rate
	minStreamInterval = time.Second

	// wsWriteTimeout bounds each frame write
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is enforced by the router middleware; the handshake itself
	// accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLiveStream upgrades to a websocket and pushes the range-query
// result as a JSON frame on a fixed interval:
// GET /api/v1/aircraft/ws?lat=&lon=&radius=&interval=
// Frames use the same view shape as the REST range query.
func (s *Server) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	radius, err3 := strconv.ParseFloat(q.Get("radius"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		respondError(w, http.StatusBadRequest, "lat, lon and radius query parameters must be numbers")
		return
	}

	// Validate before upgrading so bad input gets a proper HTTP error.
	if _, err := s.store.Query(lat, lon, radius, time.Now().UTC()); err != nil {
		var qErr *store.InvalidQueryError
		if errors.As(err, &qErr) {
			respondError(w, http.StatusBadRequest, qErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	interval := defaultStreamInterval
	if raw := q.Get("interval"); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || secs <= 0 {
			respondError(w, http.StatusBadRequest, "interval must be a positive number of seconds")
			return
		}
		interval = time.Duration(secs * float64(time.Second))
		if interval < minStreamInterval {
			interval = minStreamInterval
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and the close handshake are handled;
	// any read error means the peer is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.writeFrame(conn, lat, lon, radius); err != nil {
			return
		}
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// writeFrame runs the query and pushes one JSON frame.
func (s *Server) writeFrame(conn *websocket.Conn, lat, lon, radius float64) error {
	now := time.Now().UTC()
	results, err := s.store.Query(lat, lon, radius, now)
	if err != nil {
		return err
	}
	views := make([]AircraftStateView, 0, len(results))
	for _, res := range results {
		views = append(views, viewFromResult(res, now))
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(views)
}
