package stats

import (
	"context"
	"sync"

	"flashpoint/pkg/core"
)

// ModelRow 每步一行的全局统计
type ModelRow struct {
	Run         int
	Step        int
	FireCells   int
	SmokeCells  int
	RescuedPOIs int
	ActivePOIs  int
	IntactWalls int
	Explosions  int
	Outcome     string
}

// AgentRow 每步每个消防员一行
type AgentRow struct {
	Run           int
	Step          int
	FirefighterID int
	X, Y          int
	Role          string
	ActionPoints  int
	Carrying      bool
}

// Collect 从快照提取统计行
func Collect(run int, snap core.Snapshot) (ModelRow, []AgentRow) {
	st := snap.Stats
	model := ModelRow{
		Run:         run,
		Step:        st.Step,
		FireCells:   st.FireCells,
		SmokeCells:  st.SmokeCells,
		RescuedPOIs: st.RescuedPOIs,
		ActivePOIs:  st.ActivePOIs,
		IntactWalls: st.IntactWalls,
		Explosions:  st.ExplosionCount,
		Outcome:     snap.Outcome.String(),
	}
	agents := make([]AgentRow, 0, len(snap.Firefighters))
	for _, ff := range snap.Firefighters {
		agents = append(agents, AgentRow{
			Run:           run,
			Step:          st.Step,
			FirefighterID: ff.ID,
			X:             ff.Pos.X,
			Y:             ff.Pos.Y,
			Role:          ff.Role.String(),
			ActionPoints:  ff.ActionPoints,
			Carrying:      ff.CarryingPOI != core.NoPOI,
		})
	}
	return model, agents
}

// Recorder 统计数据的落地方式
type Recorder interface {
	Record(ctx context.Context, model ModelRow, agents []AgentRow) error
	Close() error
}

// MemoryRecorder 内存记录器，可并发使用
type MemoryRecorder struct {
	mu     sync.Mutex
	models []ModelRow
	agents []AgentRow
}

// NewMemoryRecorder 创建内存记录器
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, model ModelRow, agents []AgentRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, model)
	r.agents = append(r.agents, agents...)
	return nil
}

func (r *MemoryRecorder) Close() error { return nil }

// Models 返回已记录的模型行副本
func (r *MemoryRecorder) Models() []ModelRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ModelRow(nil), r.models...)
}

// Agents 返回已记录的消防员行副本
func (r *MemoryRecorder) Agents() []AgentRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AgentRow(nil), r.agents...)
}

// Nop 丢弃所有数据
type Nop struct{}

func (Nop) Record(context.Context, ModelRow, []AgentRow) error { return nil }
func (Nop) Close() error                                         { return nil }
