package client

import (
	"context"
	"sync"

	"flashpoint/internal/util"
	"flashpoint/pkg/ai"
	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

// StateSource 查看器的数据来源
type StateSource interface {
	// Snapshot 最近一次已知的状态，尚无状态时返回 false
	Snapshot() (core.Snapshot, bool)
	Step() error
	Recreate() error
	// Err 最近一次异步操作的错误
	Err() error
}

// LocalSource 在本进程内运行模拟
type LocalSource struct {
	cfg    core.Config
	policy ai.Config
	seed   int64
	sim    *core.Simulation
}

// NewLocalSource 创建本地数据源
func NewLocalSource(cfg core.Config, policy ai.Config, seed int64) (*LocalSource, error) {
	s := &LocalSource{cfg: cfg, policy: policy, seed: seed}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalSource) build() error {
	sim, err := core.NewSimulation(s.cfg, util.New(s.seed), ai.NewController(s.policy))
	if err != nil {
		return err
	}
	s.sim = sim
	return nil
}

func (s *LocalSource) Snapshot() (core.Snapshot, bool) {
	return s.sim.Snapshot(), true
}

// Step 已分出胜负时不再推进
func (s *LocalSource) Step() error {
	if s.sim.Outcome() == core.OutcomeOngoing {
		s.sim.Step()
	}
	return nil
}

// Recreate 换一个种子重新开始
func (s *LocalSource) Recreate() error {
	s.seed++
	return s.build()
}

func (s *LocalSource) Err() error { return nil }

// Seed 当前模拟使用的种子
func (s *LocalSource) Seed() int64 { return s.seed }

type sourceResult struct {
	snap core.Snapshot
	err  error
}

// RemoteSource 通过服务器获取状态，请求在后台 goroutine 中完成
type RemoteSource struct {
	client *NetworkClient
	params map[string]any

	results  chan sourceResult
	mu       sync.Mutex
	inFlight bool

	latest  core.Snapshot
	has     bool
	lastErr error
}

// NewRemoteSource 创建远程数据源，params 为 create 请求参数
func NewRemoteSource(client *NetworkClient, params map[string]any) *RemoteSource {
	return &RemoteSource{
		client:  client,
		params:  params,
		results: make(chan sourceResult, 4),
	}
}

func (s *RemoteSource) Snapshot() (core.Snapshot, bool) {
	s.poll()
	return s.latest, s.has
}

func (s *RemoteSource) poll() {
	for {
		select {
		case r := <-s.results:
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
			if r.err != nil {
				s.lastErr = r.err
				continue
			}
			s.latest, s.has, s.lastErr = r.snap, true, nil
		default:
			for pkt := s.client.ReceiveEvent(); pkt != nil; pkt = s.client.ReceiveEvent() {
				state, ok := protocol.Field(pkt, "state").(map[string]any)
				if !ok {
					continue
				}
				if snap, err := protocol.SnapshotFromMap(state); err == nil {
					s.latest, s.has = snap, true
				}
			}
			return
		}
	}
}

// async 同一时间只允许一个请求在途，忙时直接忽略
func (s *RemoteSource) async(fn func(ctx context.Context) (core.Snapshot, error)) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	go func() {
		snap, err := fn(context.Background())
		s.results <- sourceResult{snap: snap, err: err}
	}()
}

func (s *RemoteSource) Step() error {
	s.async(s.client.Step)
	return nil
}

func (s *RemoteSource) Recreate() error {
	s.async(func(ctx context.Context) (core.Snapshot, error) {
		return s.client.Create(ctx, s.params)
	})
	return nil
}

// Refresh 重新拉取完整状态
func (s *RemoteSource) Refresh() {
	s.async(s.client.State)
}

func (s *RemoteSource) Err() error {
	if err := s.client.Err(); err != nil {
		s.lastErr = err
	}
	return s.lastErr
}
