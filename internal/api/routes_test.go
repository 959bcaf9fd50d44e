package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitlog-sync-service/internal/remote"
	"fitlog-sync-service/internal/store"
	"fitlog-sync-service/internal/sync"
)

type fakeDispatcher struct {
	err   error
	calls int
}

func (d *fakeDispatcher) Execute(ctx context.Context, action store.PendingAction) (json.RawMessage, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return json.RawMessage(`{"id":"srv-1"}`), nil
}

func newTestHandler(t *testing.T, dispatcher sync.Dispatcher, authToken string) (*Handler, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)
	engine := sync.NewEngine(st, dispatcher)
	smart := sync.NewSmartLogger(st, dispatcher)
	return NewHandler(st, engine, smart, authToken), st
}

func doRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestRoutes_HealthCheck(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDispatcher{}, "")
	rec := doRequest(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_AuthMiddleware(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDispatcher{}, "secret")

	rec := doRequest(h, http.MethodGet, "/api/v1/sync/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec2 := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestRoutes_SyncStatus(t *testing.T) {
	h, st := newTestHandler(t, &fakeDispatcher{}, "")
	_, err := st.QueueAction(context.Background(), store.ActionCreatePost, json.RawMessage(`{}`))
	require.NoError(t, err)

	rec := doRequest(h, http.MethodGet, "/api/v1/sync/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["online"])
	assert.Equal(t, false, body["syncing"])
	assert.Equal(t, float64(1), body["pending"])
}

func TestRoutes_TriggerSyncDrainsQueue(t *testing.T) {
	d := &fakeDispatcher{}
	h, st := newTestHandler(t, d, "")
	_, err := st.QueueAction(context.Background(), store.ActionCreatePost, json.RawMessage(`{"content":"x"}`))
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/v1/sync/trigger", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res sync.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, sync.SyncResult{Synced: 1}, res)
	assert.Equal(t, 1, d.calls)
}

func TestRoutes_LogWorkoutOnline(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDispatcher{}, "")

	rec := doRequest(h, http.MethodPost, "/api/v1/log/workouts", `{"workout_type":"push"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res sync.LogResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Offline)
}

func TestRoutes_LogWorkoutOfflineQueues(t *testing.T) {
	h, st := newTestHandler(t, &fakeDispatcher{}, "")
	require.NoError(t, st.SetOnline(context.Background(), false))

	rec := doRequest(h, http.MethodPost, "/api/v1/log/workouts", `{"workout_type":"legs"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var res sync.LogResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Offline)
	assert.NotEmpty(t, res.ActionID)

	count, err := st.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRoutes_LogWorkoutValidation(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDispatcher{}, "")

	rec := doRequest(h, http.MethodPost, "/api/v1/log/workouts", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_LogCaloriesRejectionPassesStatusThrough(t *testing.T) {
	d := &fakeDispatcher{err: &remote.StatusError{Status: http.StatusUnprocessableEntity, Message: "bad macros"}}
	h, _ := newTestHandler(t, d, "")

	rec := doRequest(h, http.MethodPost, "/api/v1/log/calories", `{"calories":500}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad macros")
}

func TestRoutes_ConnectivityTransitionDrains(t *testing.T) {
	d := &fakeDispatcher{}
	h, st := newTestHandler(t, d, "")
	require.NoError(t, st.SetOnline(context.Background(), false))
	_, err := st.QueueAction(context.Background(), store.ActionCreatePost, json.RawMessage(`{"content":"x"}`))
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/v1/connectivity", `{"online":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Online bool            `json:"online"`
		Drain  sync.SyncResult `json:"drain"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Online)
	assert.Equal(t, 1, body.Drain.Synced)
	assert.Equal(t, 1, d.calls)
}

func TestRoutes_FailedQueueLifecycle(t *testing.T) {
	h, st := newTestHandler(t, &fakeDispatcher{}, "")
	id, err := st.QueueAction(context.Background(), store.ActionAddComment, json.RawMessage(`{"postId":"p1","comment":"x"}`))
	require.NoError(t, err)
	for i := 0; i < store.MaxRetries; i++ {
		require.NoError(t, st.MarkActionFailed(context.Background(), id, "rejected"))
	}

	rec := doRequest(h, http.MethodGet, "/api/v1/queue/failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var failed []store.PendingAction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].ID)

	rec = doRequest(h, http.MethodDelete, "/api/v1/queue/failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":1}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/v1/queue/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
