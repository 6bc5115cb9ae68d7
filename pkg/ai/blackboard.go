package ai

import "flashpoint/pkg/core"

// Blackboard 单个消防员一次激活的决策上下文
type Blackboard struct {
	Sim  *core.Simulation
	Self *core.Firefighter

	Target *core.Position // 本次选中的目标格（出口、POI 或火点）
}

// Reset 激活开始时清空上一次的决策结果
func (bb *Blackboard) Reset(sim *core.Simulation, ff *core.Firefighter) {
	bb.Sim = sim
	bb.Self = ff
	bb.Target = nil
}
