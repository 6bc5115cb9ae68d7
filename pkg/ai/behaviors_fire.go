package ai

import (
	"flashpoint/pkg/ai/bt"
	"flashpoint/pkg/core"
)

// actSelectFireTarget 全局优先火焰：有火时只看火焰格，否则看烟雾格
func actSelectFireTarget(bb *Blackboard) bt.Status {
	cells := bb.Sim.Board.CellsWith(core.FireFire)
	if len(cells) == 0 {
		cells = bb.Sim.Board.CellsWith(core.FireSmoke)
	}
	target, ok := nearest(bb.Self.Pos, cells)
	if !ok {
		return bt.StatusFailure
	}
	bb.Target = &target
	return bt.StatusSuccess
}

// actExtinguishOrApproach 位于目标格时灭火，否则向目标走一步
func actExtinguishOrApproach(bb *Blackboard) bt.Status {
	if bb.Self.Pos == *bb.Target {
		if bb.Self.Extinguish(bb.Sim) {
			return bt.StatusSuccess
		}
		return bt.StatusFailure
	}
	if stepToward(bb, *bb.Target) {
		return bt.StatusSuccess
	}
	return bt.StatusFailure
}

// fireTree 灭火者
func fireTree() bt.Node[*Blackboard] {
	return &bt.Sequence[*Blackboard]{Children: []bt.Node[*Blackboard]{
		&bt.Action[*Blackboard]{Do: actSelectFireTarget},
		&bt.Action[*Blackboard]{Do: actExtinguishOrApproach},
	}}
}
