package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/engine"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/infra/storage"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.NewEngine(engine.Options{
		BaseInterval:   time.Millisecond,
		InitialDivider: 10,
		StartPaused:    true,
		DetailLimit:    20,
		StartingMoney:  10000,
		LandBasePrice:  100,
		DailyIncome:    1,
	}, events.NewEventLog(nil, 1000, 0), logger.NewDiscardLogger(), bignumber.NewFormatter(64))
}

type fakeSaver struct {
	calls atomic.Int32
	err   error
}

func (s *fakeSaver) SaveNow(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

func intPtr(n int) *int { return &n }

func TestRouterBulkCommands(t *testing.T) {
	e := newTestEngine(t)
	r := NewRouter(e, nil, logger.NewDiscardLogger())
	ctx := context.Background()

	reply := r.Dispatch(ctx, Command{Type: "buy_land", Quantity: intPtr(5)})
	require.True(t, reply.OK, reply.Error)
	assert.Equal(t, engine.CommandResult{Requested: 5, Applied: 5}, reply.Result)

	reply = r.Dispatch(ctx, Command{Type: "plow"})
	require.True(t, reply.OK)
	assert.Equal(t, 1, reply.Result.(engine.CommandResult).Applied)

	reply = r.Dispatch(ctx, Command{Type: "plow", Quantity: intPtr(-1)})
	assert.Equal(t, 4, reply.Result.(engine.CommandResult).Applied)

	reply = r.Dispatch(ctx, Command{Type: "clear", Quantity: intPtr(10)})
	res := reply.Result.(engine.CommandResult)
	assert.Equal(t, 5, res.Applied)
	assert.True(t, res.Clamped)

	reply = r.Dispatch(ctx, Command{Type: "plow", Quantity: intPtr(0)})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "quantity")
}

func TestRouterClockCommands(t *testing.T) {
	e := newTestEngine(t)
	r := NewRouter(e, nil, logger.NewDiscardLogger())
	ctx := context.Background()

	reply := r.Dispatch(ctx, Command{Type: "step"})
	require.True(t, reply.OK)
	assert.Equal(t, int64(1), e.Clock().TickCount)

	reply = r.Dispatch(ctx, Command{Type: "resume", Divider: 1})
	require.True(t, reply.OK, "a locked tier is a no-op, not an error")
	assert.Empty(t, reply.Error)
	locked := reply.Result.(ClockResult)
	assert.False(t, locked.Applied)
	assert.True(t, locked.Clock.Paused)
	assert.True(t, e.Clock().Paused)

	reply = r.Dispatch(ctx, Command{Type: "resume", Divider: 40})
	require.True(t, reply.OK)
	assert.True(t, reply.Result.(ClockResult).Applied)
	assert.False(t, e.Clock().Paused)
	assert.Equal(t, 40, e.Clock().Divider)

	reply = r.Dispatch(ctx, Command{Type: "step"})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, engine.ErrNotPaused.Error())

	r.Dispatch(ctx, Command{Type: "toggle"})
	assert.True(t, e.Clock().Paused)

	r.Dispatch(ctx, Command{Type: "set_notation", Scientific: true})
	assert.True(t, e.Formatter().Scientific())
}

func TestRouterRejectsUnknownAndSavesThroughSaver(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	reply := NewRouter(e, nil, logger.NewDiscardLogger()).Dispatch(ctx, Command{Type: "save"})
	assert.False(t, reply.OK)

	saver := &fakeSaver{}
	r := NewRouter(e, saver, logger.NewDiscardLogger())
	reply = r.Dispatch(ctx, Command{Type: "save"})
	assert.True(t, reply.OK)
	assert.Equal(t, int32(1), saver.calls.Load())

	reply = r.Dispatch(ctx, Command{Type: "dance"})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "unknown command")

	reply = r.Dispatch(ctx, Command{Type: "merge", A: "nope", B: "nada"})
	assert.False(t, reply.OK)

	reply = r.Dispatch(ctx, Command{Type: "select_crop", Crop: "moonflower"})
	assert.False(t, reply.OK)
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"buy_land","quantity":-1}`))
	require.NoError(t, err)
	assert.Equal(t, -1, cmd.quantity())

	_, err = DecodeCommand([]byte(`{"quantity":1}`))
	assert.ErrorIs(t, err, ErrMalformedCommand)

	_, err = DecodeCommand([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedCommand)
}

func TestAPIState(t *testing.T) {
	e := newTestEngine(t)
	e.BuyLand(3)
	e.Plow(-1)
	api := NewAPI(e, APIOptions{Slot: "main"}, logger.NewDiscardLogger())
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view engine.StateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "3", view.FieldCount)
	assert.True(t, view.Paused)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/farm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var farmResp struct {
		Fields int `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &farmResp))
	assert.Equal(t, 3, farmResp.Fields)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPISave(t *testing.T) {
	e := newTestEngine(t)

	rec := httptest.NewRecorder()
	NewAPI(e, APIOptions{}, logger.NewDiscardLogger()).HandleSave(rec, httptest.NewRequest(http.MethodPost, "/api/save", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	saver := &fakeSaver{}
	api := NewAPI(e, APIOptions{Saver: saver, Slot: "main"}, logger.NewDiscardLogger())
	rec = httptest.NewRecorder()
	api.HandleSave(rec, httptest.NewRequest(http.MethodPost, "/api/save", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), saver.calls.Load())

	saver.err = errors.New("disk full")
	rec = httptest.NewRecorder()
	api.HandleSave(rec, httptest.NewRequest(http.MethodPost, "/api/save", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIJournalFilters(t *testing.T) {
	e := newTestEngine(t)
	e.BuyLand(2)
	e.Plow(-1)
	api := NewAPI(e, APIOptions{}, logger.NewDiscardLogger())

	rec := httptest.NewRecorder()
	api.HandleJournal(rec, httptest.NewRequest(http.MethodGet, "/api/journal?type=LAND_BOUGHT", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Total  int                `json:"total_events"`
		Events []events.GameEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, events.EventTypeLandBought, resp.Events[0].Type)

	rec = httptest.NewRecorder()
	api.HandleJournal(rec, httptest.NewRequest(http.MethodGet, "/api/journal?since=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	api.HandleJournalStats(rec, httptest.NewRequest(http.MethodGet, "/api/journal/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Source string           `json:"source"`
		Stats  map[string]int64 `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "memory", stats.Source)
	assert.Equal(t, int64(1), stats.Stats["FIELDS_PLOWED"])
}

type fakeRecaps struct{}

func (fakeRecaps) GenerateRecap(ctx context.Context, slot string, since int64, limit int) (*storage.Recap, error) {
	return &storage.Recap{Harvests: 2, LastSeq: since + 7}, nil
}

func TestAPIRecap(t *testing.T) {
	e := newTestEngine(t)

	rec := httptest.NewRecorder()
	NewAPI(e, APIOptions{}, logger.NewDiscardLogger()).HandleRecap(rec, httptest.NewRequest(http.MethodGet, "/api/recap", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	api := NewAPI(e, APIOptions{Recaps: fakeRecaps{}, Slot: "main"}, logger.NewDiscardLogger())
	rec = httptest.NewRecorder()
	api.HandleRecap(rec, httptest.NewRequest(http.MethodGet, "/api/recap?since=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var recap storage.Recap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recap))
	assert.Equal(t, 2, recap.Harvests)
	assert.Equal(t, int64(10), recap.LastSeq)
}

func TestAPIRecommendations(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAPI(newTestEngine(t), APIOptions{}, logger.NewDiscardLogger()).
		HandleRecommendations(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Notes")
}

// startHub runs a hub behind an httptest server and returns its ws URL.
func startHub(t *testing.T, e *engine.Engine, opts HubOptions) (*Hub, string) {
	t.Helper()
	hub := NewHub(e, NewRouter(e, nil, logger.NewDiscardLogger()), opts, logger.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, frameType string) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == frameType {
			return f
		}
	}
}

func TestHubSendsStateAndReplies(t *testing.T) {
	e := newTestEngine(t)
	_, url := startHub(t, e, HubOptions{BroadcastInterval: time.Hour})
	conn := dial(t, url)

	first := readFrame(t, conn, "state")
	require.NotNil(t, first.State)
	assert.Equal(t, int64(0), first.State.Tick)

	require.NoError(t, conn.WriteJSON(Command{Type: "buy_land", Quantity: intPtr(4)}))
	f := readFrame(t, conn, "reply")
	require.NotNil(t, f.Reply)
	assert.True(t, f.Reply.OK, f.Reply.Error)
	assert.Equal(t, "buy_land", f.Reply.Command)
	assert.Equal(t, "4", e.View().Land)
}

func TestHubBroadcastsJournal(t *testing.T) {
	e := newTestEngine(t)
	_, url := startHub(t, e, HubOptions{BroadcastInterval: 10 * time.Millisecond})
	conn := dial(t, url)
	readFrame(t, conn, "state")

	require.NoError(t, e.Step())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f := readFrame(t, conn, "state")
		for _, ev := range f.Events {
			if ev.Type == events.EventTypeStepped {
				assert.Equal(t, int64(1), f.State.Tick)
				return
			}
		}
	}
	t.Fatal("no broadcast carried the STEPPED event")
}

func TestHubRateLimitsCommands(t *testing.T) {
	e := newTestEngine(t)
	_, url := startHub(t, e, HubOptions{BroadcastInterval: time.Hour, MaxMessagesPerSecond: 1, MessageBurst: 1})
	conn := dial(t, url)
	readFrame(t, conn, "state")

	require.NoError(t, conn.WriteJSON(Command{Type: "pause"}))
	require.NoError(t, conn.WriteJSON(Command{Type: "pause"}))

	assert.True(t, readFrame(t, conn, "reply").Reply.OK)
	second := readFrame(t, conn, "reply").Reply
	assert.False(t, second.OK)
	assert.Equal(t, "rate limit exceeded", second.Error)
}

func TestHubEnforcesMaxClients(t *testing.T) {
	e := newTestEngine(t)
	hub, url := startHub(t, e, HubOptions{BroadcastInterval: time.Hour, MaxClients: 1})
	conn := dial(t, url)
	readFrame(t, conn, "state")
	assert.Equal(t, 1, hub.Clients())

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
