// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/auth"
	"github.com/alegjs044/Gecko-house-sub000/internal/data"
	"github.com/alegjs044/Gecko-house-sub000/internal/realtime"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UserStore is the slice of the persistence gateway the HTTP layer
// needs: credential lookup and per-user history.
type UserStore interface {
	Credentials(ctx context.Context, username string) (int, string, error)
	History(ctx context.Context, kind data.SensorKind, userID, limit int) ([]data.Reading, error)
}

type Handler struct {
	store        UserStore
	hub          *realtime.Hub
	auth         *auth.Manager
	historyLimit int
	log          *zap.Logger
}

func NewHandler(store UserStore, hub *realtime.Hub, authManager *auth.Manager, historyLimit int, log *zap.Logger) *Handler {
	return &Handler{
		store:        store,
		hub:          hub,
		auth:         authManager,
		historyLimit: historyLimit,
		log:          log,
	}
}

type loginRequest struct {
	Usuario    string `json:"usuario"`
	Contrasena string `json:"contrasena"`
}

// HandleLogin verifies credentials and issues a JWT.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	userID, hash, err := h.store.Credentials(r.Context(), req.Usuario)
	if err != nil || !auth.VerifyPassword(hash, req.Contrasena) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.auth.GenerateToken(userID)
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"token": token, "user_id": userID})
}

var historyKinds = map[string]data.SensorKind{
	"temperatura": data.KindTemperature,
	"humedad":     data.KindHumidity,
	"luz_uv":      data.KindUVLight,
}

// HandleHistory returns the authenticated user's recent readings of one
// kind, newest first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	kind, ok := historyKinds[chi.URLParam(r, "kind")]
	if !ok {
		http.Error(w, "Unknown sensor kind", http.StatusNotFound)
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	readings, err := h.store.History(r.Context(), kind, userID, limit)
	if err != nil {
		h.log.Error("history query failed",
			zap.String("kind", string(kind)), zap.Int("user_id", userID), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if readings == nil {
		readings = []data.Reading{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

// HandleWebSocket authenticates the handshake, upgrades the connection
// and registers the session with the hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewClient(h.hub, conn, claims.UserID, h.log)
	h.hub.Register(claims.UserID, client)

	go client.WritePump()
	go client.ReadPump()
}
