package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"flashpoint/internal/stats"
	"flashpoint/internal/util"
	"flashpoint/pkg/ai"
	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

// MaxBatchSteps 一次 steps 请求允许推进的最大步数
const MaxBatchSteps = 100

var (
	ErrNoGame        = errors.New("no game created")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidSteps  = errors.New("invalid steps")
	ErrSessionClosed = errors.New("会话已关闭")
)

// Subscriber 可接收广播消息的连接
// Send 返回 ErrConnectionClosed 时订阅被移除
type Subscriber interface {
	Send(data []byte) error
}

// SessionOptions 会话参数
type SessionOptions struct {
	Scenario  core.Config
	Policy    ai.Config
	AutoStep  time.Duration
	Publisher Publisher
	Recorder  stats.Recorder

	// NewRand 按种子创建随机源，为空时使用 util.New
	NewRand func(seed int64) core.Rand
}

// Session 持有当前模拟，所有请求都在 Run 所在的 goroutine 中顺序处理
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   SessionOptions

	gameID  string
	sim     *core.Simulation
	run     int
	lastRun int

	subscribers map[Subscriber]struct{}

	requestCh chan sessionRequest
	leaveCh   chan Subscriber
}

type sessionRequest struct {
	sub    Subscriber
	req    *Request
	respCh chan *protocol.Packet
}

type runAllocator interface {
	NextRun(ctx context.Context) (int, error)
}

// NewSession 创建会话，需要调用 Run 启动处理循环
func NewSession(parent context.Context, opts SessionOptions) *Session {
	ctx, cancel := context.WithCancel(parent)
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.Recorder == nil {
		opts.Recorder = stats.Nop{}
	}
	if opts.NewRand == nil {
		opts.NewRand = func(seed int64) core.Rand { return util.New(seed) }
	}
	return &Session{
		ctx:         ctx,
		cancel:      cancel,
		opts:        opts,
		subscribers: make(map[Subscriber]struct{}),
		requestCh:   make(chan sessionRequest),
		leaveCh:     make(chan Subscriber, 256),
	}
}

func (s *Session) Run(wg *sync.WaitGroup) {
	defer wg.Done()

	var tick <-chan time.Time
	if s.opts.AutoStep > 0 {
		ticker := time.NewTicker(s.opts.AutoStep)
		defer ticker.Stop()
		tick = ticker.C
		log.Printf("会话循环启动: 自动推进间隔 %v", s.opts.AutoStep)
	} else {
		log.Println("会话循环启动")
	}

	for {
		select {
		case <-s.ctx.Done():
			log.Println("会话循环停止")
			return

		case r := <-s.requestCh:
			if r.sub != nil {
				s.subscribers[r.sub] = struct{}{}
			}
			r.respCh <- s.handle(r.req)

		case sub := <-s.leaveCh:
			delete(s.subscribers, sub)

		case <-tick:
			s.autoStep()
		}
	}
}

func (s *Session) Shutdown() {
	s.cancel()
}

// Do 提交请求并等待响应
func (s *Session) Do(sub Subscriber, req *Request) (*protocol.Packet, error) {
	respCh := make(chan *protocol.Packet, 1)

	select {
	case <-s.ctx.Done():
		return nil, ErrSessionClosed
	case s.requestCh <- sessionRequest{sub: sub, req: req, respCh: respCh}:
	}

	select {
	case <-s.ctx.Done():
		return nil, ErrSessionClosed
	case pkt := <-respCh:
		return pkt, nil
	}
}

// Leave 取消订阅广播
func (s *Session) Leave(sub Subscriber) {
	select {
	case <-s.ctx.Done():
	case s.leaveCh <- sub:
	}
}

func (s *Session) handle(req *Request) *protocol.Packet {
	pkt, err := s.dispatch(req)
	if err != nil {
		return protocol.NewErrorPacket(req.Seq, req.Type, err)
	}
	return pkt
}

func (s *Session) dispatch(req *Request) (*protocol.Packet, error) {
	if req.Type == protocol.TypeCreate {
		return s.create(req)
	}
	if req.Type == protocol.TypeReset && s.sim == nil {
		return s.respond(req, protocol.StatusSuccess, "Game reset successfully", nil)
	}
	if s.sim == nil {
		return nil, ErrNoGame
	}
	if req.Mutating() {
		if err := s.authorize(req.Token); err != nil {
			return nil, err
		}
	}

	sim := s.sim
	switch req.Type {
	case protocol.TypeState:
		return s.respond(req, protocol.StatusSuccess, "", map[string]any{
			"state": protocol.SnapshotToMap(sim.Snapshot()),
		})

	case protocol.TypeStep:
		report := s.advance(1)
		return s.respond(req, protocol.StatusSuccess, fmt.Sprintf("Step %d executed", report.Step), map[string]any{
			"report": protocol.StepReportToMap(report),
			"state":  protocol.SnapshotToMap(sim.Snapshot()),
		})

	case protocol.TypeSteps:
		if req.Steps < 1 || req.Steps > MaxBatchSteps {
			return nil, fmt.Errorf("steps=%d, allowed 1..%d: %w", req.Steps, MaxBatchSteps, ErrInvalidSteps)
		}
		s.advance(req.Steps)
		return s.respond(req, protocol.StatusSuccess, fmt.Sprintf("%d steps executed", req.Steps), map[string]any{
			"current_step": sim.StepIndex,
			"state":        protocol.SnapshotToMap(sim.Snapshot()),
		})

	case protocol.TypeFirefighters:
		return s.respond(req, protocol.StatusSuccess, "", map[string]any{
			"firefighters": protocol.FirefightersToList(sim.FirefighterViews()),
		})

	case protocol.TypePOIs:
		return s.respond(req, protocol.StatusSuccess, "", map[string]any{
			"pois": protocol.POIsToList(sim.POIViews()),
		})

	case protocol.TypeGrid:
		return s.respond(req, protocol.StatusSuccess, "", map[string]any{
			"width":  sim.Board.Width,
			"height": sim.Board.Height,
			"grid":   protocol.GridToList(sim.Cells()),
		})

	case protocol.TypeWalls:
		return s.respond(req, protocol.StatusSuccess, "", map[string]any{
			"walls": protocol.WallsToList(sim.WallViews()),
		})

	case protocol.TypeStats:
		return s.respond(req, protocol.StatusSuccess, "", map[string]any{
			"stats": protocol.StatsToMap(sim.Stats()),
		})

	case protocol.TypeReset:
		log.Printf("会话 %s: 重置，共 %d 步", s.gameID, sim.StepIndex)
		s.sim = nil
		s.gameID = ""
		return s.respond(req, protocol.StatusSuccess, "Game reset successfully", nil)
	}

	if cmd, ok := req.Command(); ok {
		return s.command(req, cmd)
	}
	return nil, fmt.Errorf("未知请求类型: %s", req.Type)
}

func (s *Session) create(req *Request) (*protocol.Packet, error) {
	cfg := protocol.ConfigFromMap(req.Create, s.opts.Scenario)
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sim, err := core.NewSimulation(cfg, s.opts.NewRand(seed), ai.NewController(s.opts.Policy))
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	gameID := uuid.NewString()
	token, err := GenerateSessionToken(gameID)
	if err != nil {
		return nil, fmt.Errorf("生成 Token 失败: %w", err)
	}

	s.sim = sim
	s.gameID = gameID
	s.run = s.nextRun()
	s.record()

	log.Printf("会话 %s: 创建模拟 %dx%d 消防员=%d POI=%d seed=%d",
		gameID, cfg.Width, cfg.Height, len(sim.Firefighters), sim.POIs.Len(), seed)

	return s.respond(req, protocol.StatusSuccess, "Game created successfully", map[string]any{
		"game_id":       gameID,
		"token":         token,
		"seed":          seed,
		"initial_state": protocol.SnapshotToMap(sim.Snapshot()),
	})
}

var commandMessages = map[core.CommandKind][2]string{
	core.CommandMove:       {"Move failed (no AP or blocked)", "Move successful"},
	core.CommandExtinguish: {"No fire to extinguish or no AP", "Fire extinguished"},
	core.CommandPickUp:     {"Nothing to pick up or no AP", "POI picked up"},
	core.CommandDrop:       {"Not carrying a POI or not at an exit", "POI rescued"},
}

func (s *Session) command(req *Request, cmd core.Command) (*protocol.Packet, error) {
	ok, err := core.ApplyCommand(s.sim, cmd)
	if err != nil {
		return nil, err
	}

	status, msg := protocol.StatusFailed, commandMessages[cmd.Kind][0]
	if ok {
		status, msg = protocol.StatusSuccess, commandMessages[cmd.Kind][1]
	}

	data := map[string]any{}
	for _, view := range s.sim.FirefighterViews() {
		if view.ID != cmd.FirefighterID {
			continue
		}
		data["firefighter"] = protocol.FirefighterToMap(view)
		if cmd.Kind == core.CommandExtinguish {
			data["cell_state"] = s.sim.Board.FireLevelAt(view.Pos).String()
		}
	}
	return s.respond(req, status, msg, data)
}

func (s *Session) respond(req *Request, status, message string, data map[string]any) (*protocol.Packet, error) {
	return protocol.NewResponsePacket(req.Seq, req.Type, status, message, data)
}

func (s *Session) authorize(token string) error {
	gameID, err := VerifySessionToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if gameID != s.gameID {
		return fmt.Errorf("%w: token belongs to another game", ErrUnauthorized)
	}
	return nil
}

// advance 推进 n 步，返回最后一步的结果
func (s *Session) advance(n int) core.StepReport {
	var report core.StepReport
	for i := 0; i < n; i++ {
		report = s.sim.Step()
		if err := s.opts.Publisher.PublishStep(s.gameID, report); err != nil {
			log.Printf("会话 %s: 发布第 %d 步失败: %v", s.gameID, report.Step, err)
		}
		s.record()
	}
	return report
}

func (s *Session) autoStep() {
	if s.sim == nil || s.sim.Outcome() != core.OutcomeOngoing {
		return
	}
	report := s.advance(1)
	if report.Outcome != core.OutcomeOngoing {
		log.Printf("会话 %s: 第 %d 步结束，结果 %s", s.gameID, report.Step, report.Outcome)
	}

	pkt, err := protocol.NewRequestPacket(protocol.TypeStepEvent, 0, "", map[string]any{
		"game_id": s.gameID,
		"report":  protocol.StepReportToMap(report),
		"state":   protocol.SnapshotToMap(s.sim.Snapshot()),
	})
	if err != nil {
		log.Printf("会话 %s: 构造广播失败: %v", s.gameID, err)
		return
	}
	data, err := protocol.MarshalPacket(pkt)
	if err != nil {
		log.Printf("会话 %s: 序列化广播失败: %v", s.gameID, err)
		return
	}
	for sub := range s.subscribers {
		err := sub.Send(data)
		switch {
		case errors.Is(err, ErrConnectionClosed):
			// Leave 可能先于同一连接的最后一个请求处理，连接会被重新加入
			delete(s.subscribers, sub)
		case err != nil:
			log.Printf("会话 %s: 广播失败: %v", s.gameID, err)
		}
	}
}

func (s *Session) nextRun() int {
	if alloc, ok := s.opts.Recorder.(runAllocator); ok {
		if run, err := alloc.NextRun(s.ctx); err == nil && run > s.lastRun {
			s.lastRun = run
			return run
		}
	}
	s.lastRun++
	return s.lastRun
}

func (s *Session) record() {
	model, agents := stats.Collect(s.run, s.sim.Snapshot())
	if err := s.opts.Recorder.Record(s.ctx, model, agents); err != nil {
		log.Printf("会话 %s: 记录第 %d 步失败: %v", s.gameID, model.Step, err)
	}
}
