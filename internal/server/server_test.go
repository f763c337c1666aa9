package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliotttmiller/sentinel/internal/config"
	"github.com/elliotttmiller/sentinel/internal/events"
	"github.com/elliotttmiller/sentinel/internal/mission"
	"github.com/elliotttmiller/sentinel/internal/stage"
)

type serverFixture struct {
	server *Server
	store  *mission.MemoryStore
	bus    *events.Bus
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	store := mission.NewMemoryStore()
	bus := events.NewBus()
	bus.Start(context.Background())
	t.Cleanup(func() { _ = bus.Close() })

	engine, err := mission.NewEngine(store, bus, stage.SimulatedRegistry(0))
	require.NoError(t, err)

	cfg := config.DefaultConfig().Server
	return &serverFixture{
		server: New(cfg, engine, store, bus, nil),
		store:  store,
		bus:    bus,
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSubmitMission(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/missions", map[string]string{
		"id":         "m1",
		"prompt":     "build a widget",
		"agent_type": "coder",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	// The run is asynchronous; wait for the terminal store state.
	require.Eventually(t, func() bool {
		m, err := f.store.Get(context.Background(), "m1")
		return err == nil && m.Status == mission.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitMissionValidation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/missions", map[string]string{"id": "m1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitMissionDuplicateID(t *testing.T) {
	f := newServerFixture(t)

	require.NoError(t, f.store.Save(context.Background(),
		mission.NewMission("m1", "prompt", "coder")))

	rec := f.do(t, http.MethodPost, "/api/missions", map[string]string{
		"id":     "m1",
		"prompt": "again",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMission(t *testing.T) {
	f := newServerFixture(t)

	require.NoError(t, f.store.Save(context.Background(),
		mission.NewMission("m1", "prompt", "coder")))

	rec := f.do(t, http.MethodGet, "/api/missions/m1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var m mission.Mission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, mission.StatusPending, m.Status)

	rec = f.do(t, http.MethodGet, "/api/missions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMissions(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, mission.NewMission("m1", "one", "coder")))
	require.NoError(t, f.store.Save(ctx, mission.NewMission("m2", "two", "coder")))
	require.NoError(t, f.store.UpdateStatus(ctx, "m2", mission.StatusRunning, mission.StatusFields{}))

	rec := f.do(t, http.MethodGet, "/api/missions?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Missions []mission.Mission `json:"missions"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Missions, 1)
	assert.Equal(t, "m1", resp.Missions[0].ID)

	rec = f.do(t, http.MethodGet, "/api/missions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelMission(t *testing.T) {
	f := newServerFixture(t)

	require.NoError(t, f.store.Save(context.Background(),
		mission.NewMission("m1", "prompt", "coder")))

	rec := f.do(t, http.MethodPost, "/api/missions/m1/cancel", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	m, err := f.store.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, mission.StatusCancelled, m.Status)

	// Cancelling a terminal mission conflicts.
	rec = f.do(t, http.MethodPost, "/api/missions/m1/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/missions/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventStreamDeliversRecords(t *testing.T) {
	f := newServerFixture(t)

	ts := httptest.NewServer(f.server.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/events/stream")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait until the bus has registered the observer, then publish.
	require.Eventually(t, func() bool { return f.bus.SubscriberCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	rec := events.NewRecord(events.EventMissionStarted, "test", events.SeverityInfo, "hello", nil)
	require.NoError(t, f.bus.Publish(rec))

	scanner := bufio.NewScanner(resp.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, payload)

	var decoded events.EventRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, rec.EventID, decoded.EventID)
	assert.Equal(t, "hello", decoded.Message)
}

func TestListConnections(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/events/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connections"`)
}
