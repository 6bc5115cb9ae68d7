package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashpoint/internal/stats"
	"flashpoint/internal/util"
	"flashpoint/pkg/ai"
	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

// 5x2 无墙棋盘：出口 (0,0)，消防员在 (2,1)，真实 POI 在 (4,0)，没有热点
func testScenario() core.Config {
	return core.Config{
		Width:             5,
		Height:            2,
		Firefighters:      1,
		WallHealth:        2,
		WallLayout:        core.WallLayoutRooms,
		Exits:             []core.Position{{X: 0, Y: 0}},
		Hotspots:          []core.Position{},
		FirefighterStarts: []core.Position{{X: 2, Y: 1}},
		POIPlacements:     []core.POIPlacement{{Pos: core.Position{X: 4, Y: 0}}},
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	reports []core.StepReport
	closed  bool
}

func (p *recordingPublisher) PublishStep(_ string, r core.StepReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return nil
}

func (p *recordingPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reports)
}

type chanSubscriber struct {
	ch chan []byte
}

func (s *chanSubscriber) Send(data []byte) error {
	select {
	case s.ch <- data:
	default:
	}
	return nil
}

func startSession(t *testing.T, opts SessionOptions) *Session {
	t.Helper()
	if opts.Scenario.Width == 0 {
		opts.Scenario = testScenario()
	}
	if opts.NewRand == nil {
		opts.NewRand = func(int64) core.Rand { return util.Fixed(0.99) }
	}
	if opts.Policy.Rescuers == 0 {
		opts.Policy = ai.Config{Rescuers: core.RescuerCount, ScoreCarriedPOIs: true}
	}
	s := NewSession(context.Background(), opts)
	var wg sync.WaitGroup
	wg.Add(1)
	go s.Run(&wg)
	t.Cleanup(func() {
		s.Shutdown()
		wg.Wait()
	})
	return s
}

func do(t *testing.T, s *Session, sub Subscriber, req *Request) *protocol.Response {
	t.Helper()
	pkt, err := s.Do(sub, req)
	require.NoError(t, err)
	assert.Equal(t, req.Seq, pkt.Seq)
	resp, err := protocol.ParseResponse(pkt)
	require.NoError(t, err)
	assert.Equal(t, req.Type, resp.Request)
	return resp
}

func create(t *testing.T, s *Session) (string, string) {
	t.Helper()
	resp := do(t, s, nil, &Request{Type: protocol.TypeCreate, Seq: 1})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	token, _ := resp.Body["token"].(string)
	gameID, _ := resp.Body["game_id"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, gameID)
	return token, gameID
}

func TestSessionRequiresGame(t *testing.T) {
	s := startSession(t, SessionOptions{})

	for _, typ := range []string{protocol.TypeState, protocol.TypeStats, protocol.TypeGrid} {
		resp := do(t, s, nil, &Request{Type: typ, Seq: 2})
		assert.Equal(t, protocol.StatusError, resp.Status)
		assert.Contains(t, resp.Message, ErrNoGame.Error())
	}
}

func TestSessionCreateIssuesToken(t *testing.T) {
	s := startSession(t, SessionOptions{})
	token, gameID := create(t, s)

	verified, err := VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, gameID, verified)

	resp := do(t, s, nil, &Request{Type: protocol.TypeState, Seq: 3})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	state, err := protocol.SnapshotFromMap(resp.Body["state"].(map[string]any))
	require.NoError(t, err)
	assert.Equal(t, 5, state.Width)
	assert.Equal(t, 2, state.Height)
	require.Len(t, state.Firefighters, 1)
	assert.Equal(t, core.Position{X: 2, Y: 1}, state.Firefighters[0].Pos)
}

func TestSessionCreateOverridesScenario(t *testing.T) {
	s := startSession(t, SessionOptions{Scenario: core.DefaultConfig()})
	resp := do(t, s, nil, &Request{
		Type:   protocol.TypeCreate,
		Create: map[string]any{"width": 8.0, "height": 6.0, "num_firefighters": 2.0, "initial_pois": 1.0},
	})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)

	state, err := protocol.SnapshotFromMap(resp.Body["initial_state"].(map[string]any))
	require.NoError(t, err)
	assert.Equal(t, 8, state.Width)
	assert.Equal(t, 6, state.Height)
	assert.Len(t, state.Firefighters, 2)
	assert.Len(t, state.POIs, 1)

	resp = do(t, s, nil, &Request{Type: protocol.TypeCreate, Create: map[string]any{"width": 1.0}})
	assert.Equal(t, protocol.StatusError, resp.Status)
}

func TestSessionRejectsMutatingWithoutToken(t *testing.T) {
	s := startSession(t, SessionOptions{})
	token, _ := create(t, s)

	resp := do(t, s, nil, &Request{Type: protocol.TypeStep, Seq: 4})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, ErrUnauthorized.Error())

	other, err := GenerateSessionToken("another-game")
	require.NoError(t, err)
	resp = do(t, s, nil, &Request{Type: protocol.TypeMove, Seq: 5, Token: other, Target: core.Position{X: 1, Y: 1}})
	assert.Equal(t, protocol.StatusError, resp.Status)

	// 查询不需要 Token
	resp = do(t, s, nil, &Request{Type: protocol.TypeStats, Seq: 6})
	assert.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.EqualValues(t, 0, resp.Body["stats"].(map[string]any)["current_step"])

	resp = do(t, s, nil, &Request{Type: protocol.TypeStep, Seq: 7, Token: token})
	assert.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.Equal(t, "Step 1 executed", resp.Message)
}

func TestSessionStepsBounds(t *testing.T) {
	s := startSession(t, SessionOptions{})
	token, _ := create(t, s)

	for _, n := range []int{0, -1, MaxBatchSteps + 1} {
		resp := do(t, s, nil, &Request{Type: protocol.TypeSteps, Token: token, Steps: n})
		assert.Equal(t, protocol.StatusError, resp.Status, "steps=%d", n)
		assert.Contains(t, resp.Message, ErrInvalidSteps.Error())
	}

	resp := do(t, s, nil, &Request{Type: protocol.TypeSteps, Token: token, Steps: 3})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.EqualValues(t, 3, resp.Body["current_step"])
	assert.Equal(t, "3 steps executed", resp.Message)

	resp = do(t, s, nil, &Request{Type: protocol.TypeSteps, Token: token, Steps: MaxBatchSteps})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.EqualValues(t, 3+MaxBatchSteps, resp.Body["current_step"])
}

func TestSessionManualCommands(t *testing.T) {
	s := startSession(t, SessionOptions{})
	token, _ := create(t, s)

	resp := do(t, s, nil, &Request{Type: protocol.TypeMove, Token: token, FirefighterID: 0, Target: core.Position{X: 3, Y: 1}})
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	ff := resp.Body["firefighter"].(map[string]any)
	assert.Equal(t, map[string]any{"x": 3.0, "y": 1.0}, ff["position"])
	assert.EqualValues(t, core.MaxActionPoints-1, ff["action_points"])

	// 不相邻的目标
	resp = do(t, s, nil, &Request{Type: protocol.TypeMove, Token: token, FirefighterID: 0, Target: core.Position{X: 0, Y: 0}})
	assert.Equal(t, protocol.StatusFailed, resp.Status)

	resp = do(t, s, nil, &Request{Type: protocol.TypeExtinguish, Token: token, FirefighterID: 0})
	assert.Equal(t, protocol.StatusFailed, resp.Status)
	assert.Equal(t, "CLEAR", resp.Body["cell_state"])

	resp = do(t, s, nil, &Request{Type: protocol.TypeDrop, Token: token, FirefighterID: 0})
	assert.Equal(t, protocol.StatusFailed, resp.Status)

	resp = do(t, s, nil, &Request{Type: protocol.TypePickUp, Token: token, FirefighterID: 99})
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, core.ErrUnknownFirefighter.Error())
}

func TestSessionQueries(t *testing.T) {
	s := startSession(t, SessionOptions{})
	create(t, s)

	resp := do(t, s, nil, &Request{Type: protocol.TypeFirefighters})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.Len(t, resp.Body["firefighters"], 1)

	resp = do(t, s, nil, &Request{Type: protocol.TypePOIs})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	pois := resp.Body["pois"].([]any)
	require.Len(t, pois, 1)
	assert.Nil(t, pois[0].(map[string]any)["is_false_alarm"])

	resp = do(t, s, nil, &Request{Type: protocol.TypeGrid})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.EqualValues(t, 5, resp.Body["width"])
	assert.Len(t, resp.Body["grid"], 2)

	resp = do(t, s, nil, &Request{Type: protocol.TypeWalls})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	assert.Empty(t, resp.Body["walls"])
}

func TestSessionReset(t *testing.T) {
	s := startSession(t, SessionOptions{})
	token, _ := create(t, s)

	resp := do(t, s, nil, &Request{Type: protocol.TypeReset})
	assert.Equal(t, protocol.StatusError, resp.Status)

	resp = do(t, s, nil, &Request{Type: protocol.TypeReset, Token: token})
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	resp = do(t, s, nil, &Request{Type: protocol.TypeState})
	assert.Equal(t, protocol.StatusError, resp.Status)

	// 没有模拟时重置依旧成功
	resp = do(t, s, nil, &Request{Type: protocol.TypeReset})
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	// 旧 Token 不能操作新创建的模拟
	create(t, s)
	resp = do(t, s, nil, &Request{Type: protocol.TypeStep, Token: token})
	assert.Equal(t, protocol.StatusError, resp.Status)
}

func TestSessionPublishesAndRecords(t *testing.T) {
	pub := &recordingPublisher{}
	rec := stats.NewMemoryRecorder()
	s := startSession(t, SessionOptions{Publisher: pub, Recorder: rec})
	token, _ := create(t, s)

	do(t, s, nil, &Request{Type: protocol.TypeSteps, Token: token, Steps: 2})

	assert.Equal(t, 2, pub.count())
	models := rec.Models()
	require.Len(t, models, 3)
	for i, m := range models {
		assert.Equal(t, i, m.Step)
		assert.Equal(t, 1, m.Run)
	}
	assert.Len(t, rec.Agents(), 3)
}

func TestSessionAutoStepBroadcast(t *testing.T) {
	sub := &chanSubscriber{ch: make(chan []byte, 16)}
	s := startSession(t, SessionOptions{AutoStep: 10 * time.Millisecond})

	resp := do(t, s, sub, &Request{Type: protocol.TypeCreate})
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	select {
	case data := <-sub.ch:
		pkt, err := protocol.UnmarshalPacket(data)
		require.NoError(t, err)
		assert.Equal(t, protocol.TypeStepEvent, pkt.Type)
		report, ok := protocol.Field(pkt, "report").(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 1, report["step"])
		assert.Equal(t, resp.Body["game_id"], protocol.Field(pkt, "game_id"))
	case <-time.After(2 * time.Second):
		t.Fatal("没有收到 step_event")
	}
}

type closedSubscriber struct {
	sends atomic.Int32
}

func (s *closedSubscriber) Send([]byte) error {
	s.sends.Add(1)
	return ErrConnectionClosed
}

func TestSessionDropsClosedSubscriber(t *testing.T) {
	dead := &closedSubscriber{}
	live := &chanSubscriber{ch: make(chan []byte, 16)}
	s := startSession(t, SessionOptions{AutoStep: 10 * time.Millisecond})

	// 连接关闭后 Leave 先被处理，随后它的最后一个请求又把它加回订阅
	resp := do(t, s, dead, &Request{Type: protocol.TypeCreate})
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	do(t, s, live, &Request{Type: protocol.TypeState})

	for i := 0; i < 3; i++ {
		select {
		case <-live.ch:
		case <-time.After(2 * time.Second):
			t.Fatal("没有收到 step_event")
		}
	}
	assert.Equal(t, int32(1), dead.sends.Load())
}
