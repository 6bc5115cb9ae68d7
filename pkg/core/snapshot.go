package core

// CellView 单个格子的只读视图
type CellView struct {
	Pos    Position
	Fire   FireLevel
	Kind   CellKind
	IsExit bool
	HasPOI bool
}

// WallView 墙体的只读视图
type WallView struct {
	A, B      Position
	Health    int
	MaxHealth int
	Destroyed bool
}

// POIView POI 的只读视图
// FalseAlarm 仅在 Revealed 为真时有意义
type POIView struct {
	ID         int
	Pos        Position
	Revealed   bool
	FalseAlarm bool
	Rescued    bool
	CarriedBy  int
}

// FirefighterView 消防员的只读视图
type FirefighterView struct {
	ID              int
	Pos             Position
	ActionPoints    int
	MaxActionPoints int
	Role            Role
	CarryingPOI     int
}

// Stats 聚合计数
type Stats struct {
	Step           int
	RescuedPOIs    int
	ActivePOIs     int // 未获救（含被携带）
	FireCells      int
	SmokeCells     int
	ExplosionCount int
	IntactWalls    int
}

// Snapshot 完整状态快照
type Snapshot struct {
	Width        int
	Height       int
	Cells        [][]CellView // [y][x]
	Walls        []WallView
	POIs         []POIView
	Firefighters []FirefighterView
	Exits        []Position
	Stats        Stats
	Outcome      Outcome
}

// Cells 按行返回所有格子
func (s *Simulation) Cells() [][]CellView {
	rows := make([][]CellView, s.Board.Height)
	for y := range rows {
		row := make([]CellView, s.Board.Width)
		for x := range row {
			p := Position{X: x, Y: y}
			row[x] = CellView{
				Pos:    p,
				Fire:   s.Board.FireLevelAt(p),
				Kind:   s.Board.CellKindAt(p),
				IsExit: s.Board.IsExit(p),
				HasPOI: s.POIs.At(p) != nil,
			}
		}
		rows[y] = row
	}
	return rows
}

// WallViews 按键排序返回所有墙体
func (s *Simulation) WallViews() []WallView {
	keys := s.Walls.Keys()
	out := make([]WallView, 0, len(keys))
	for _, k := range keys {
		w, _ := s.Walls.Wall(k.A, k.B)
		out = append(out, WallView{
			A:         k.A,
			B:         k.B,
			Health:    w.Health,
			MaxHealth: w.MaxHealth,
			Destroyed: w.IsDestroyed(),
		})
	}
	return out
}

// POIViews 按集合顺序返回所有 POI
func (s *Simulation) POIViews() []POIView {
	all := s.POIs.All()
	out := make([]POIView, 0, len(all))
	for i := range all {
		poi := &all[i]
		fa, _ := poi.FalseAlarm()
		pos := poi.Pos
		if poi.CarriedBy != NoFirefighter {
			if ff, err := s.Firefighter(poi.CarriedBy); err == nil {
				pos = ff.Pos
			}
		}
		out = append(out, POIView{
			ID:         poi.ID,
			Pos:        pos,
			Revealed:   poi.Revealed,
			FalseAlarm: fa,
			Rescued:    poi.Rescued,
			CarriedBy:  poi.CarriedBy,
		})
	}
	return out
}

// FirefighterViews 按 ID 顺序返回所有消防员
func (s *Simulation) FirefighterViews() []FirefighterView {
	out := make([]FirefighterView, 0, len(s.Firefighters))
	for _, ff := range s.Firefighters {
		out = append(out, FirefighterView{
			ID:              ff.ID,
			Pos:             ff.Pos,
			ActionPoints:    ff.ActionPoints,
			MaxActionPoints: ff.MaxActionPoints,
			Role:            ff.Role,
			CarryingPOI:     ff.CarryingPOI,
		})
	}
	return out
}

// Exits 出口位置
func (s *Simulation) Exits() []Position {
	return s.Board.Exits()
}

// Stats 当前聚合计数
func (s *Simulation) Stats() Stats {
	return Stats{
		Step:           s.StepIndex,
		RescuedPOIs:    s.POIs.RescuedCount(),
		ActivePOIs:     s.POIs.Unrescued(),
		FireCells:      s.Board.Count(FireFire),
		SmokeCells:     s.Board.Count(FireSmoke),
		ExplosionCount: s.ExplosionCount,
		IntactWalls:    s.Walls.IntactCount(),
	}
}

// Snapshot 完整状态快照，与内部状态不共享内存
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Width:        s.Board.Width,
		Height:       s.Board.Height,
		Cells:        s.Cells(),
		Walls:        s.WallViews(),
		POIs:         s.POIViews(),
		Firefighters: s.FirefighterViews(),
		Exits:        s.Exits(),
		Stats:        s.Stats(),
		Outcome:      s.Outcome(),
	}
}
