package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode"

	"moneyrates-service/internal/application"
	"moneyrates-service/internal/domain"
	"moneyrates-service/internal/infrastructure/logx"
	"moneyrates-service/internal/infrastructure/ws"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	items  *application.ItemService
	poller *application.Poller
	hub    *ws.Hub
	ping   func(ctx context.Context) error
}

func NewServer(items *application.ItemService, poller *application.Poller, hub *ws.Hub, ping func(ctx context.Context) error) *Server {
	return &Server{items: items, poller: poller, hub: hub, ping: ping}
}

type itemJSON struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Rate      float64   `json:"rate"`
	Nominal   int       `json:"nominal"`
	Source    string    `json:"source"`
	IsCrypto  bool      `json:"is_crypto"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toItemJSON(it domain.Item) itemJSON {
	return itemJSON{
		ID:        it.ID,
		Code:      it.Code,
		Title:     it.Title,
		Rate:      it.Rate,
		Nominal:   it.Nominal,
		Source:    it.Source,
		IsCrypto:  it.IsCrypto,
		UpdatedAt: it.UpdatedAt,
	}
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.List(r.Context())
	if err != nil {
		internalError(w)
		return
	}
	out := make([]itemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, toItemJSON(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := s.items.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			notFound(w)
			return
		}
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toItemJSON(it))
}

type createItemRequest struct {
	Code     string   `json:"code"`
	Title    string   `json:"title"`
	Rate     *float64 `json:"rate"`
	Nominal  *int     `json:"nominal"`
	Source   string   `json:"source"`
	IsCrypto bool     `json:"is_crypto"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var body createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Code == "" || !alpha(body.Code) {
		writeError(w, http.StatusBadRequest, "code must be a non-empty alphabetic string")
		return
	}
	if body.Title == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}
	if body.Rate == nil || *body.Rate < 0 {
		writeError(w, http.StatusBadRequest, "rate must be a non-negative number")
		return
	}
	nominal := 1
	if body.Nominal != nil {
		nominal = *body.Nominal
	}
	if nominal < 1 {
		writeError(w, http.StatusBadRequest, "nominal must be at least one")
		return
	}

	created, err := s.items.Create(r.Context(), domain.Item{
		Code:     body.Code,
		Title:    body.Title,
		Rate:     *body.Rate,
		Nominal:  nominal,
		Source:   body.Source,
		IsCrypto: body.IsCrypto,
	})
	if err != nil {
		if errors.Is(err, application.ErrConflict) {
			writeError(w, http.StatusConflict, "item with this code already exists")
			return
		}
		internalError(w)
		return
	}
	writeJSON(w, http.StatusCreated, toItemJSON(created))
}

type patchItemRequest struct {
	Title    *string  `json:"title"`
	Rate     *float64 `json:"rate"`
	Nominal  *int     `json:"nominal"`
	Source   *string  `json:"source"`
	IsCrypto *bool    `json:"is_crypto"`
}

func (s *Server) patchItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body patchItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Rate != nil && *body.Rate < 0 {
		writeError(w, http.StatusBadRequest, "rate must be a non-negative number")
		return
	}
	if body.Nominal != nil && *body.Nominal < 1 {
		writeError(w, http.StatusBadRequest, "nominal must be at least one")
		return
	}
	updated, err := s.items.Update(r.Context(), id, application.ItemPatch{
		Title:    body.Title,
		Rate:     body.Rate,
		Nominal:  body.Nominal,
		Source:   body.Source,
		IsCrypto: body.IsCrypto,
	})
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			notFound(w)
			return
		}
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toItemJSON(updated))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.items.Delete(r.Context(), id); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			notFound(w)
			return
		}
		internalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runTask(w http.ResponseWriter, r *http.Request) {
	if s.poller == nil {
		writeError(w, http.StatusInternalServerError, "background task is not running")
		return
	}
	if err := s.poller.RunOnce(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, application.ErrTaskFailed.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) wsItems(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.L().Warn("ws_upgrade_failed", zap.Error(err))
		return
	}
	peer := ws.NewConn(conn)
	s.hub.Register(peer)
	defer func() {
		s.hub.Unregister(peer)
		_ = peer.Close()
	}()
	// Drain inbound frames; the peer only listens, but reads surface
	// disconnects and answer control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func alpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "item not found")
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
