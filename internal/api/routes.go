package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fitlog-sync-service/internal/remote"
	"fitlog-sync-service/internal/store"
	"fitlog-sync-service/internal/sync"
)

// Handler exposes the queue-management surface to the UI layer: status,
// queue inspection, manual drain trigger, connectivity signal, and the
// smart-log entry points.
type Handler struct {
	store     store.Store
	engine    *sync.Engine
	smart     *sync.SmartLogger
	authToken string
}

func NewHandler(st store.Store, engine *sync.Engine, smart *sync.SmartLogger, authToken string) *Handler {
	return &Handler{
		store:     st,
		engine:    engine,
		smart:     smart,
		authToken: authToken,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CorsMiddleware)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Post("/sync/trigger", h.TriggerSync)
		r.Get("/sync/status", h.SyncStatus)

		r.Get("/queue/pending", h.PendingActions)
		r.Get("/queue/failed", h.FailedActions)
		r.Delete("/queue/failed", h.ClearFailedActions)

		r.Post("/connectivity", h.SetConnectivity)

		r.Post("/log/workouts", h.LogWorkout)
		r.Post("/log/calories", h.LogCalories)
		r.Post("/log/intent", h.SetIntent)
		r.Post("/log/posts", h.CreatePost)
		r.Post("/log/comments", h.AddComment)
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.ProcessSyncQueue(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := h.store.State(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	pending, err := h.store.PendingCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	failed, err := h.store.FailedActions(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"online":  state.Online,
		"syncing": state.Syncing,
		"pending": pending,
		"failed":  len(failed),
	})
}

func (h *Handler) PendingActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.PendingActions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if actions == nil {
		actions = []store.PendingAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *Handler) FailedActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.FailedActions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if actions == nil {
		actions = []store.PendingAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *Handler) ClearFailedActions(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.store.ClearFailedActions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

// SetConnectivity is the injection point for the platform's connectivity
// signal. An offline-to-online transition drains the queue before replying.
func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	prev, err := h.store.State(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.store.SetOnline(ctx, body.Online); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"online": body.Online}
	if body.Online && !prev.Online {
		res, err := h.engine.ProcessSyncQueue(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["drain"] = res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) LogWorkout(w http.ResponseWriter, r *http.Request) {
	var p remote.WorkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if p.WorkoutType == "" {
		http.Error(w, "workout_type is required", http.StatusBadRequest)
		return
	}
	h.writeLogResult(w, r, func() (*sync.LogResult, error) {
		return h.smart.LogWorkout(r.Context(), p)
	})
}

func (h *Handler) LogCalories(w http.ResponseWriter, r *http.Request) {
	var p remote.CaloriesPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if p.Calories <= 0 {
		http.Error(w, "calories must be positive", http.StatusBadRequest)
		return
	}
	h.writeLogResult(w, r, func() (*sync.LogResult, error) {
		return h.smart.LogCalories(r.Context(), p)
	})
}

func (h *Handler) SetIntent(w http.ResponseWriter, r *http.Request) {
	var p remote.IntentPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(p.Emphasis) == 0 {
		http.Error(w, "emphasis is required", http.StatusBadRequest)
		return
	}
	h.writeLogResult(w, r, func() (*sync.LogResult, error) {
		return h.smart.SetIntent(r.Context(), p)
	})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var p remote.PostPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if p.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	h.writeLogResult(w, r, func() (*sync.LogResult, error) {
		return h.smart.CreatePost(r.Context(), p)
	})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var p remote.CommentPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if p.PostID == "" || p.Comment == "" {
		http.Error(w, "postId and comment are required", http.StatusBadRequest)
		return
	}
	h.writeLogResult(w, r, func() (*sync.LogResult, error) {
		return h.smart.AddComment(r.Context(), p)
	})
}

// writeLogResult maps facade outcomes: queued mutations come back 202,
// remote rejections pass the remote's status through to the caller.
func (h *Handler) writeLogResult(w http.ResponseWriter, r *http.Request, fn func() (*sync.LogResult, error)) {
	res, err := fn()
	if err != nil {
		var se *remote.StatusError
		if errors.As(err, &se) {
			http.Error(w, se.Message, se.Status)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	status := http.StatusOK
	if res.Offline {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware checks the bearer token configured for the control API.
// An empty configured token disables the check (local development).
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != h.authToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
