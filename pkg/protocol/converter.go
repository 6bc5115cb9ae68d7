package protocol

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"flashpoint/pkg/core"
)

// ========== core → 线上字段 ==========

// PositionToMap {"x", "y"}
func PositionToMap(p core.Position) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

// FirefighterToMap 消防员字段，未携带时 carrying_poi 为 null
func FirefighterToMap(ff core.FirefighterView) map[string]any {
	m := map[string]any{
		"id":                    ff.ID,
		"position":              PositionToMap(ff.Pos),
		"action_points":         ff.ActionPoints,
		"max_action_points":     ff.MaxActionPoints,
		"role":                  ff.Role.String(),
		"carrying_poi":          nil,
		"carrying_poi_position": nil,
	}
	if ff.CarryingPOI != core.NoPOI {
		m["carrying_poi"] = ff.CarryingPOI
		m["carrying_poi_position"] = PositionToMap(ff.Pos)
	}
	return m
}

// POIToMap POI 字段，未揭示时 is_false_alarm 为 null
func POIToMap(poi core.POIView) map[string]any {
	m := map[string]any{
		"id":             poi.ID,
		"position":       PositionToMap(poi.Pos),
		"is_revealed":    poi.Revealed,
		"is_false_alarm": nil,
		"is_rescued":     poi.Rescued,
		"carried_by":     nil,
	}
	if poi.Revealed {
		m["is_false_alarm"] = poi.FalseAlarm
	}
	if poi.CarriedBy != core.NoFirefighter {
		m["carried_by"] = poi.CarriedBy
	}
	return m
}

// CellToMap 格子字段
func CellToMap(c core.CellView) map[string]any {
	return map[string]any{
		"fire_state": c.Fire.String(),
		"fire_value": int(c.Fire),
		"cell_type":  c.Kind.String(),
		"is_exit":    c.IsExit,
		"has_poi":    c.HasPOI,
	}
}

// WallToMap 墙体字段
func WallToMap(w core.WallView) map[string]any {
	return map[string]any{
		"position": map[string]any{
			"x1": w.A.X, "y1": w.A.Y,
			"x2": w.B.X, "y2": w.B.Y,
		},
		"health":       w.Health,
		"max_health":   w.MaxHealth,
		"is_destroyed": w.Destroyed,
	}
}

// StatsToMap 聚合计数字段
func StatsToMap(st core.Stats) map[string]any {
	return map[string]any{
		"current_step":    st.Step,
		"rescued_pois":    st.RescuedPOIs,
		"active_pois":     st.ActivePOIs,
		"fire_cells":      st.FireCells,
		"smoke_cells":     st.SmokeCells,
		"explosion_count": st.ExplosionCount,
		"intact_walls":    st.IntactWalls,
	}
}

// FirefightersToList 消防员列表
func FirefightersToList(ffs []core.FirefighterView) []any {
	out := make([]any, len(ffs))
	for i, ff := range ffs {
		out[i] = FirefighterToMap(ff)
	}
	return out
}

// POIsToList POI 列表
func POIsToList(pois []core.POIView) []any {
	out := make([]any, len(pois))
	for i, poi := range pois {
		out[i] = POIToMap(poi)
	}
	return out
}

// GridToList 按行的格子列表
func GridToList(cells [][]core.CellView) []any {
	rows := make([]any, len(cells))
	for y, row := range cells {
		items := make([]any, len(row))
		for x, c := range row {
			items[x] = CellToMap(c)
		}
		rows[y] = items
	}
	return rows
}

// WallsToList 墙体列表
func WallsToList(walls []core.WallView) []any {
	out := make([]any, len(walls))
	for i, w := range walls {
		out[i] = WallToMap(w)
	}
	return out
}

func positionsToList(ps []core.Position) []any {
	out := make([]any, len(ps))
	for i, p := range ps {
		out[i] = PositionToMap(p)
	}
	return out
}

// SnapshotToMap 完整状态
func SnapshotToMap(s core.Snapshot) map[string]any {
	return map[string]any{
		"step":         s.Stats.Step,
		"dimensions":   map[string]any{"width": s.Width, "height": s.Height},
		"firefighters": FirefightersToList(s.Firefighters),
		"pois":         POIsToList(s.POIs),
		"fire_grid":    GridToList(s.Cells),
		"walls":        WallsToList(s.Walls),
		"exits":        positionsToList(s.Exits),
		"stats":        StatsToMap(s.Stats),
		"outcome":      s.Outcome.String(),
	}
}

// SnapshotToStruct 完整状态转为 Struct
func SnapshotToStruct(s core.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(SnapshotToMap(s))
}

// ActionToMap 行动记录字段
func ActionToMap(rec core.ActionRecord) map[string]any {
	m := map[string]any{
		"step":           rec.Step,
		"firefighter_id": rec.FirefighterID,
		"role":           rec.Role.String(),
		"action":         string(rec.Action),
		"from":           PositionToMap(rec.From),
		"to":             PositionToMap(rec.To),
		"poi":            nil,
		"success":        rec.Success,
		"detail":         rec.Detail,
	}
	if rec.POI != core.NoPOI {
		m["poi"] = rec.POI
	}
	return m
}

// StepReportToMap 回合结果
func StepReportToMap(r core.StepReport) map[string]any {
	order := make([]any, len(r.ActivationOrder))
	for i, id := range r.ActivationOrder {
		order[i] = id
	}
	actions := make([]any, len(r.Actions))
	for i, rec := range r.Actions {
		actions[i] = ActionToMap(rec)
	}
	return map[string]any{
		"step":             r.Step,
		"activation_order": order,
		"actions":          actions,
		"ignited":          r.Ignited,
		"new_smoke":        r.NewSmoke,
		"explosions":       positionsToList(r.Explosions),
		"stats":            StatsToMap(r.Stats),
		"outcome":          r.Outcome.String(),
	}
}

// StepReportToStruct 回合结果转为 Struct
func StepReportToStruct(r core.StepReport) (*structpb.Struct, error) {
	return structpb.NewStruct(StepReportToMap(r))
}

// ========== 线上字段 → core ==========

// PositionFromMap 解析 {"x", "y"}
func PositionFromMap(m map[string]any) core.Position {
	return core.Position{X: intField(m, "x"), Y: intField(m, "y")}
}

// SnapshotFromMap 解析 SnapshotToMap 的结果（查看器使用）
func SnapshotFromMap(m map[string]any) (core.Snapshot, error) {
	var s core.Snapshot
	dims := mapField(m, "dimensions")
	if dims == nil {
		return s, fmt.Errorf("%w: missing dimensions", ErrInvalidPacket)
	}
	s.Width = intField(dims, "width")
	s.Height = intField(dims, "height")

	for _, item := range listField(m, "firefighters") {
		f, _ := item.(map[string]any)
		view := core.FirefighterView{
			ID:              intField(f, "id"),
			Pos:             PositionFromMap(mapField(f, "position")),
			ActionPoints:    intField(f, "action_points"),
			MaxActionPoints: intField(f, "max_action_points"),
			CarryingPOI:     core.NoPOI,
		}
		view.Role, _ = core.ParseRole(stringField(f, "role"))
		if v, ok := f["carrying_poi"].(float64); ok {
			view.CarryingPOI = int(v)
		}
		s.Firefighters = append(s.Firefighters, view)
	}

	for _, item := range listField(m, "pois") {
		p, _ := item.(map[string]any)
		view := core.POIView{
			ID:        intField(p, "id"),
			Pos:       PositionFromMap(mapField(p, "position")),
			Revealed:  boolField(p, "is_revealed"),
			Rescued:   boolField(p, "is_rescued"),
			CarriedBy: core.NoFirefighter,
		}
		view.FalseAlarm = boolField(p, "is_false_alarm")
		if v, ok := p["carried_by"].(float64); ok {
			view.CarriedBy = int(v)
		}
		s.POIs = append(s.POIs, view)
	}

	for y, rowItem := range listField(m, "fire_grid") {
		row, _ := rowItem.([]any)
		cells := make([]core.CellView, len(row))
		for x, cellItem := range row {
			c, _ := cellItem.(map[string]any)
			cells[x] = core.CellView{
				Pos:    core.Position{X: x, Y: y},
				IsExit: boolField(c, "is_exit"),
				HasPOI: boolField(c, "has_poi"),
			}
			cells[x].Fire = parseFire(c)
			cells[x].Kind = parseCellKind(stringField(c, "cell_type"))
		}
		s.Cells = append(s.Cells, cells)
	}

	for _, item := range listField(m, "walls") {
		w, _ := item.(map[string]any)
		pos := mapField(w, "position")
		s.Walls = append(s.Walls, core.WallView{
			A:         core.Position{X: intField(pos, "x1"), Y: intField(pos, "y1")},
			B:         core.Position{X: intField(pos, "x2"), Y: intField(pos, "y2")},
			Health:    intField(w, "health"),
			MaxHealth: intField(w, "max_health"),
			Destroyed: boolField(w, "is_destroyed"),
		})
	}

	for _, item := range listField(m, "exits") {
		e, _ := item.(map[string]any)
		s.Exits = append(s.Exits, PositionFromMap(e))
	}

	s.Stats = StatsFromMap(mapField(m, "stats"))
	s.Outcome = parseOutcome(stringField(m, "outcome"))
	return s, nil
}

// StatsFromMap 解析聚合计数
func StatsFromMap(m map[string]any) core.Stats {
	return core.Stats{
		Step:           intField(m, "current_step"),
		RescuedPOIs:    intField(m, "rescued_pois"),
		ActivePOIs:     intField(m, "active_pois"),
		FireCells:      intField(m, "fire_cells"),
		SmokeCells:     intField(m, "smoke_cells"),
		ExplosionCount: intField(m, "explosion_count"),
		IntactWalls:    intField(m, "intact_walls"),
	}
}

// ConfigFromMap 用 create 请求中的字段覆盖 base
// 字段名沿用 width/height/num_firefighters/initial_pois/wall_health
func ConfigFromMap(m map[string]any, base core.Config) core.Config {
	cfg := base
	if v, ok := m["width"].(float64); ok {
		cfg.Width = int(v)
	}
	if v, ok := m["height"].(float64); ok {
		cfg.Height = int(v)
	}
	if v, ok := m["num_firefighters"].(float64); ok {
		cfg.Firefighters = int(v)
	}
	if v, ok := m["initial_pois"].(float64); ok {
		cfg.POIs = int(v)
	}
	if v, ok := m["wall_health"].(float64); ok {
		cfg.WallHealth = int(v)
	}
	if v, ok := m["wall_layout"].(string); ok {
		cfg.WallLayout = core.WallLayout(v)
	}
	return cfg
}

// parseFire 以 fire_state 为准，缺失时退回 fire_value
func parseFire(c map[string]any) core.FireLevel {
	if level, ok := core.ParseFireLevel(stringField(c, "fire_state")); ok {
		return level
	}
	return core.FireLevel(intField(c, "fire_value"))
}

func parseCellKind(s string) core.CellKind {
	switch s {
	case "EXIT":
		return core.CellExit
	case "HOTSPOT":
		return core.CellHotspot
	}
	return core.CellNormal
}

func parseOutcome(s string) core.Outcome {
	switch s {
	case "victory":
		return core.OutcomeVictory
	case "defeat":
		return core.OutcomeDefeat
	}
	return core.OutcomeOngoing
}
