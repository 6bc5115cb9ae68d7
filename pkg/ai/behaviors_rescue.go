package ai

import (
	"flashpoint/pkg/ai/bt"
	"flashpoint/pkg/core"
)

func condRescuer(bb *Blackboard) bool {
	return bb.Self.Role == core.RoleRescuer
}

func condCarrying(bb *Blackboard) bool {
	return bb.Self.IsCarrying()
}

// actSelectExit 选择曼哈顿距离最近的出口（同距离取行优先的第一个）
func actSelectExit(bb *Blackboard) bt.Status {
	exit, ok := nearest(bb.Self.Pos, bb.Sim.Exits())
	if !ok {
		return bt.StatusFailure
	}
	bb.Target = &exit
	return bt.StatusSuccess
}

// actMoveToExit 沿最短路径走一步，到达出口时立即放下
func actMoveToExit(bb *Blackboard) bt.Status {
	if !stepToward(bb, *bb.Target) {
		return bt.StatusFailure
	}
	if bb.Sim.Board.IsExit(bb.Self.Pos) {
		bb.Self.DropAtExit(bb.Sim)
	}
	return bt.StatusSuccess
}

// actSelectPOI 选择曼哈顿距离最近的地面 POI（同距离取集合顺序的第一个）
func actSelectPOI(bb *Blackboard) bt.Status {
	active := bb.Sim.POIs.Active()
	if len(active) == 0 {
		return bt.StatusFailure
	}
	cells := make([]core.Position, len(active))
	for i, poi := range active {
		cells[i] = poi.Pos
	}
	target, _ := nearest(bb.Self.Pos, cells)
	bb.Target = &target
	return bt.StatusSuccess
}

// actPickUpOrApproach 位于目标格时拾取，否则向目标走一步
func actPickUpOrApproach(bb *Blackboard) bt.Status {
	if bb.Self.Pos == *bb.Target {
		if bb.Self.PickUp(bb.Sim) {
			return bt.StatusSuccess
		}
		return bt.StatusFailure
	}
	if stepToward(bb, *bb.Target) {
		return bt.StatusSuccess
	}
	return bt.StatusFailure
}

// rescueTree 救援者：携带时前往出口，否则前往最近的 POI
// 携带分支失败时不会退回到拾取分支
func rescueTree() bt.Node[*Blackboard] {
	return &bt.Sequence[*Blackboard]{Children: []bt.Node[*Blackboard]{
		&bt.Condition[*Blackboard]{Check: condRescuer},
		&bt.Always[*Blackboard]{Child: &bt.Selector[*Blackboard]{Children: []bt.Node[*Blackboard]{
			&bt.Sequence[*Blackboard]{Children: []bt.Node[*Blackboard]{
				&bt.Condition[*Blackboard]{Check: condCarrying},
				&bt.Always[*Blackboard]{Child: &bt.Sequence[*Blackboard]{Children: []bt.Node[*Blackboard]{
					&bt.Action[*Blackboard]{Do: actSelectExit},
					&bt.Action[*Blackboard]{Do: actMoveToExit},
				}}},
			}},
			&bt.Sequence[*Blackboard]{Children: []bt.Node[*Blackboard]{
				&bt.Action[*Blackboard]{Do: actSelectPOI},
				&bt.Action[*Blackboard]{Do: actPickUpOrApproach},
			}},
		}}},
	}}
}

// stepToward 沿最短路径向 goal 走一步
// 已在目标格或不可达时不行动
func stepToward(bb *Blackboard, goal core.Position) bool {
	next, ok := bb.Sim.Pathfinder().NextStep(bb.Self.Pos, goal)
	if !ok {
		return false
	}
	return bb.Self.Move(next, bb.Sim)
}

// nearest 返回曼哈顿距离最近的格子，同距离保留先出现的
func nearest(from core.Position, cells []core.Position) (core.Position, bool) {
	if len(cells) == 0 {
		return core.Position{}, false
	}
	best := cells[0]
	bestDist := core.Manhattan(from, best)
	for _, c := range cells[1:] {
		if d := core.Manhattan(from, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, true
}
