package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/rgb-alchemy/internal/color"
	"github.com/robalobadob/rgb-alchemy/internal/config"
	"github.com/robalobadob/rgb-alchemy/internal/game"
	"github.com/robalobadob/rgb-alchemy/internal/puzzle"
	"github.com/robalobadob/rgb-alchemy/internal/storage"
	"github.com/robalobadob/rgb-alchemy/internal/store"
	"github.com/robalobadob/rgb-alchemy/internal/targets"
)

type testEnv struct {
	ts     *httptest.Server
	db     *storage.Store
	client *http.Client
}

// newTestEnv serves a 3x3 board with 3 moves and a white target, which
// three single-channel sources can never reach: every game is lost after
// the placement phase.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvTarget(t, color.White)
}

// winTarget is matched by the red source alone at top 0 of a 3x3 board.
var winTarget = color.RGB{R: 191, G: 0, B: 0}

func newTestEnvTarget(t *testing.T, target color.RGB) *testEnv {
	t.Helper()

	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tun := config.Tuning{
		Board: config.BoardTuning{MinWidth: 3, MaxWidth: 3, MinHeight: 3, MaxHeight: 3},
		Moves: config.MovesTuning{Min: 3, Max: 3},
	}
	gen := puzzle.NewGenerator(tun, []targets.Target{{Name: "target", Color: target}}, 1)
	env := config.Env{
		ClientOrigin:   "http://localhost:3000",
		JWTSecret:      "test-secret",
		JWTExpiresDays: 1,
		CookieName:     "alchemy_token",
		DailySalt:      "salt",
	}

	srv := New(store.NewMemoryStore(), db, gen, env)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, client: newClient(t)}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// asOther returns the same server seen from a browser with its own cookies.
func (e *testEnv) asOther(t *testing.T) *testEnv {
	other := *e
	other.client = newClient(t)
	return &other
}

func (e *testEnv) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) initGame(t *testing.T) game.GameData {
	t.Helper()
	var d game.GameData
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/init", "", &d))
	require.NotEmpty(t, d.UserID)
	return d
}

func TestInitReturnsGameData(t *testing.T) {
	e := newTestEnv(t)

	resp, err := e.client.Get(e.ts.URL + "/init")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, float64(3), raw["width"])
	assert.Equal(t, float64(3), raw["height"])
	assert.Equal(t, float64(3), raw["maxMoves"])
	assert.Equal(t, []any{float64(255), float64(255), float64(255)}, raw["target"])
	assert.NotEmpty(t, raw["userId"])
}

func TestInitUserReplacesSession(t *testing.T) {
	e := newTestEnv(t)
	d := e.initGame(t)

	var res moveRes
	e.do(t, http.MethodPost, "/game/"+d.UserID+"/place", `{"side":"top","index":0}`, &res)
	require.True(t, res.Accepted)
	assert.Equal(t, 2, res.Snapshot.MovesRemaining)

	var again game.GameData
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/init/user/"+d.UserID, "", &again))
	assert.Equal(t, d.UserID, again.UserID)

	var snap game.Snapshot
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/game/"+d.UserID, "", &snap))
	assert.Equal(t, 3, snap.MovesRemaining)
	assert.Equal(t, game.PhasePlacement, snap.Phase.Kind)
}

func TestUnknownUserIs404(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/game/nobody", "", nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/game/nobody/place", `{"side":0,"index":0}`, nil))
}

func TestMalformedJSONIs400(t *testing.T) {
	e := newTestEnv(t)
	d := e.initGame(t)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/game/"+d.UserID+"/place", `{"side":`, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/game/"+d.UserID+"/place", `{"side":"middle","index":0}`, nil))
}

func TestRejectedMoveKeepsState(t *testing.T) {
	e := newTestEnv(t)
	d := e.initGame(t)
	path := "/game/" + d.UserID

	var res moveRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, path+"/place", `{"side":"left","index":1}`, &res))
	require.True(t, res.Accepted)

	// same slot again
	res = moveRes{}
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, path+"/place", `{"side":2,"index":1}`, &res))
	assert.False(t, res.Accepted)
	assert.Equal(t, game.ErrSlotOccupied.Error(), res.Reason)
	assert.Equal(t, 2, res.Snapshot.MovesRemaining)

	// dragging is not allowed during placement
	res = moveRes{}
	e.do(t, http.MethodPost, path+"/select", `{"row":0,"col":0}`, &res)
	assert.False(t, res.Accepted)
	assert.Equal(t, game.ErrWrongPhase.Error(), res.Reason)

	// out of range
	res = moveRes{}
	e.do(t, http.MethodPost, path+"/place", `{"side":"top","index":9}`, &res)
	assert.False(t, res.Accepted)
	assert.Equal(t, 2, res.Snapshot.MovesRemaining)
}

func TestLostGameIsPersisted(t *testing.T) {
	e := newTestEnv(t)
	d := e.initGame(t)
	path := "/game/" + d.UserID

	var res moveRes
	for i := 0; i < 3; i++ {
		res = moveRes{}
		e.do(t, http.MethodPost, path+"/place", fmt.Sprintf(`{"side":"top","index":%d}`, i), &res)
		require.True(t, res.Accepted, "move %d", i)
	}
	assert.Equal(t, game.PhaseEnded, res.Snapshot.Phase.Kind)
	assert.False(t, res.Snapshot.Phase.Success)
	assert.Equal(t, 0, res.Snapshot.MovesRemaining)

	// the game is locked now
	res = moveRes{}
	e.do(t, http.MethodPost, path+"/select", `{"row":0,"col":0}`, &res)
	assert.False(t, res.Accepted)
	assert.Equal(t, game.ErrGameOver.Error(), res.Reason)

	var status string
	var used int
	require.NoError(t, e.db.DB().QueryRow(
		`SELECT status, moves_used FROM games WHERE player_id=?`, d.UserID).Scan(&status, &used))
	assert.Equal(t, storage.StatusLost, status)
	assert.Equal(t, 3, used)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/auth/me", "", nil))

	var errRes map[string]string
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/auth/signup", `{"username":"a!","password":"password123"}`, &errRes))
	assert.NotEmpty(t, errRes["error"])

	d := e.initGame(t)

	body := `{"username":"mixer","password":"password123"}`
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/auth/signup", body, nil))
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, "/auth/signup", body, nil))

	var me authUser
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/auth/me", "", &me))
	assert.Equal(t, "mixer", me.Username)

	// the guest game started from this browser was claimed
	var games []storage.GameRow
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/games/mine", "", &games))
	require.Len(t, games, 1)
	assert.Equal(t, d.UserID, games[0].PlayerID)

	// a game played while logged in updates stats
	d2 := e.initGame(t)
	for i := 0; i < 3; i++ {
		e.do(t, http.MethodPost, "/game/"+d2.UserID+"/place", fmt.Sprintf(`{"side":"bottom","index":%d}`, i), nil)
	}
	var stats map[string]any
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/stats/me", "", &stats))
	assert.Equal(t, float64(1), stats["gamesPlayed"])
	assert.Equal(t, float64(0), stats["wins"])

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/auth/logout", "", nil))
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/auth/me", "", nil))

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/auth/login", `{"username":"mixer","password":"wrong-password"}`, nil))
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/auth/login", `{"username":"MIXER","password":"password123"}`, nil))
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/auth/me", "", nil))
}

func TestDailyIsSharedAndResumable(t *testing.T) {
	e := newTestEnv(t)

	var a, b, again dailyNewRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/daily/new", `{"userId":"alice"}`, &a))
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/daily/new", `{"userId":"bob"}`, &b))
	require.NotNil(t, a.Game)
	require.NotNil(t, b.Game)
	assert.False(t, a.Played)
	assert.Equal(t, a.Date, b.Date)
	assert.Equal(t, a.Game.Target, b.Game.Target)
	assert.Equal(t, "alice", a.Game.UserID)

	e.do(t, http.MethodPost, "/game/alice/place", `{"side":"top","index":0}`, nil)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/daily/new", `{"userId":"alice"}`, &again))
	var snap game.Snapshot
	e.do(t, http.MethodGet, "/game/alice", "", &snap)
	assert.Equal(t, 2, snap.MovesRemaining, "resuming keeps progress")

	// no body at all gets a fresh userId
	var anon dailyNewRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/daily/new", "", &anon))
	require.NotNil(t, anon.Game)
	assert.NotEmpty(t, anon.Game.UserID)
}

func TestLeaderboard(t *testing.T) {
	e := newTestEnv(t)

	var lb lbRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/daily/leaderboard?date=2025-01-02", "", &lb))
	assert.Equal(t, "2025-01-02", lb.Date)
	assert.NotNil(t, lb.Top)
	assert.Empty(t, lb.Top)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/daily/leaderboard?date=yesterday", "", nil))
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)
	e.initGame(t)

	var h map[string]any
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", "", &h))
	assert.Equal(t, true, h["ok"])
	assert.Equal(t, float64(1), h["sessions"])

	resp, err := e.client.Get(e.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "alchemy_sessions_started_total")
}

func TestWebsocketStreamsSnapshots(t *testing.T) {
	e := newTestEnv(t)
	d := e.initGame(t)

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/game/" + d.UserID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first game.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 3, first.MovesRemaining)

	var res moveRes
	e.do(t, http.MethodPost, "/game/"+d.UserID+"/place", `{"side":"right","index":2}`, &res)
	require.True(t, res.Accepted)

	var next game.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, 2, next.MovesRemaining)
	assert.True(t, next.Sources.Right[2].Set)

	_, resp2, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.ts.URL, "http")+"/game/nobody/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp2)
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestWonGameIsPersisted(t *testing.T) {
	e := newTestEnvTarget(t, winTarget)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/auth/signup", `{"username":"winner","password":"password123"}`, nil))

	d := e.initGame(t)
	var res moveRes
	e.do(t, http.MethodPost, "/game/"+d.UserID+"/place", `{"side":"top","index":0}`, &res)
	require.True(t, res.Accepted)
	assert.Equal(t, game.PhaseEnded, res.Snapshot.Phase.Kind)
	assert.True(t, res.Snapshot.Phase.Success)
	assert.Equal(t, 2, res.Snapshot.MovesRemaining)

	var status string
	var used int
	require.NoError(t, e.db.DB().QueryRow(
		`SELECT status, moves_used FROM games WHERE player_id=?`, d.UserID).Scan(&status, &used))
	assert.Equal(t, storage.StatusWon, status)
	assert.Equal(t, 1, used)

	var stats map[string]any
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/stats/me", "", &stats))
	assert.Equal(t, float64(1), stats["gamesPlayed"])
	assert.Equal(t, float64(1), stats["wins"])
	assert.Equal(t, float64(1), stats["streak"])
}

func TestDailyWinIsRecordedOnce(t *testing.T) {
	e := newTestEnvTarget(t, winTarget)

	var first dailyNewRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/daily/new", `{"userId":"carol"}`, &first))
	require.NotNil(t, first.Game)
	assert.False(t, first.Played)

	var res moveRes
	e.do(t, http.MethodPost, "/game/carol/place", `{"side":"top","index":0}`, &res)
	require.True(t, res.Accepted)
	require.True(t, res.Snapshot.Phase.Success)

	var moves int
	require.NoError(t, e.db.DB().QueryRow(
		`SELECT moves FROM daily_results WHERE user_id=? AND date=?`, "carol", first.Date).Scan(&moves))
	assert.Equal(t, 1, moves)

	var again dailyNewRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/daily/new", `{"userId":"carol"}`, &again))
	assert.True(t, again.Played)
	assert.Nil(t, again.Game)
	assert.Equal(t, first.Date, again.Date)

	var lb lbRes
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/daily/leaderboard?date="+first.Date, "", &lb))
	require.Len(t, lb.Top, 1)
	assert.Equal(t, "carol", lb.Top[0].UserID)
	assert.Equal(t, 1, lb.Top[0].Moves)
}

func TestGuestGamesAreClaimedOnlyByTheirBrowser(t *testing.T) {
	owner := newTestEnv(t)
	d := owner.initGame(t)

	// another browser that knows the userId cannot take the games
	thief := owner.asOther(t)
	body := `{"username":"thief","password":"password123","userId":"` + d.UserID + `"}`
	require.Equal(t, http.StatusOK, thief.do(t, http.MethodPost, "/auth/signup", body, nil))
	var games []storage.GameRow
	require.Equal(t, http.StatusOK, thief.do(t, http.MethodGet, "/games/mine", "", &games))
	assert.Empty(t, games)

	// restarting someone else's userId does not hand out their guest cookie
	require.Equal(t, http.StatusOK, thief.do(t, http.MethodPost, "/auth/logout", "", nil))
	require.Equal(t, http.StatusOK, thief.do(t, http.MethodGet, "/init/user/"+d.UserID, "", nil))
	require.Equal(t, http.StatusOK, thief.do(t, http.MethodPost, "/auth/login", `{"username":"thief","password":"password123"}`, nil))
	games = nil
	require.Equal(t, http.StatusOK, thief.do(t, http.MethodGet, "/games/mine", "", &games))
	assert.Empty(t, games)

	require.Equal(t, http.StatusOK, owner.do(t, http.MethodPost, "/auth/signup", `{"username":"owner","password":"password123"}`, nil))
	games = nil
	require.Equal(t, http.StatusOK, owner.do(t, http.MethodGet, "/games/mine", "", &games))
	require.Len(t, games, 2)
	for _, g := range games {
		assert.Equal(t, d.UserID, g.PlayerID)
	}
}
