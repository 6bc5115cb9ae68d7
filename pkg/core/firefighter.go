package core

// Firefighter 消防员（纯逻辑，不包含渲染）
// 携带关系只保存 POI 的 ID，由 POIRegistry 同时维护两端
type Firefighter struct {
	ID              int      // 消防员ID
	Pos             Position // 当前位置
	ActionPoints    int      // 本回合剩余行动点
	MaxActionPoints int      // 行动点上限
	Role            Role     // 当前角色
	CarryingPOI     int      // 携带的 POI ID，NoPOI 表示空手
}

// NewFirefighter 创建新消防员
func NewFirefighter(id int, pos Position) *Firefighter {
	return &Firefighter{
		ID:              id,
		Pos:             pos,
		ActionPoints:    MaxActionPoints,
		MaxActionPoints: MaxActionPoints,
		Role:            RoleUnassigned,
		CarryingPOI:     NoPOI,
	}
}

// IsCarrying 是否正在携带 POI
func (f *Firefighter) IsCarrying() bool {
	return f.CarryingPOI != NoPOI
}

// ResetActionPoints 回合开始时恢复行动点
func (f *Firefighter) ResetActionPoints() {
	f.ActionPoints = f.MaxActionPoints
}

// Move 移动到相邻格子（返回是否成功）
func (f *Firefighter) Move(target Position, sim *Simulation) bool {
	from := f.Pos
	ok := f.ActionPoints > 0 && sim.pathfinder.CanTraverse(f.Pos, target)
	if ok {
		f.Pos = target
		f.ActionPoints--
	}
	rec := newRecord(f, ActionMove, target)
	rec.From = from
	rec.Success = ok
	sim.record(rec)
	return ok
}

// Extinguish 扑灭当前格子：火焰变烟雾，烟雾变空格
// 空格上失败，不消耗行动点
func (f *Firefighter) Extinguish(sim *Simulation) bool {
	rec := newRecord(f, ActionExtinguish, f.Pos)
	if f.ActionPoints > 0 {
		switch sim.Board.FireLevelAt(f.Pos) {
		case FireFire:
			sim.Board.SetFireLevel(f.Pos, FireSmoke)
			rec.Success = true
		case FireSmoke:
			sim.Board.SetFireLevel(f.Pos, FireClear)
			rec.Success = true
		}
		if rec.Success {
			f.ActionPoints--
		}
	}
	sim.record(rec)
	return rec.Success
}

// PickUp 拾取当前格子上的 POI
// 未揭示的 POI 先揭示，误报直接移除，同样消耗 1 点行动点并视为成功
func (f *Firefighter) PickUp(sim *Simulation) bool {
	rec := newRecord(f, ActionPickUp, f.Pos)
	defer func() { sim.record(rec) }()

	if f.ActionPoints <= 0 || f.IsCarrying() {
		return false
	}
	poi := sim.POIs.At(f.Pos)
	if poi == nil {
		return false
	}

	rec.POI = poi.ID
	if !poi.Revealed && !sim.POIs.Reveal(poi) {
		f.ActionPoints--
		rec.Success = true
		rec.Detail = DetailFalseAlarm
		return true
	}
	sim.POIs.PickUp(poi, f)
	f.ActionPoints--
	rec.Success = true
	return true
}

// DropAtExit 在出口放下携带的 POI，标记获救（不消耗行动点）
func (f *Firefighter) DropAtExit(sim *Simulation) bool {
	rec := newRecord(f, ActionDrop, f.Pos)
	rec.POI = f.CarryingPOI
	if f.IsCarrying() && sim.Board.IsExit(f.Pos) {
		rec.Success = sim.POIs.DropAtExit(f)
	}
	sim.record(rec)
	return rec.Success
}
