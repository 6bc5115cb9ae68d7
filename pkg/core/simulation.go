package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDimensions  = errors.New("invalid board dimensions")
	ErrInvalidCounts      = errors.New("invalid firefighter or poi count")
	ErrInvalidWallHealth  = errors.New("invalid wall health")
	ErrInvalidLayout      = errors.New("invalid board layout")
	ErrInvalidRules       = errors.New("invalid rules")
	ErrUnknownFirefighter = errors.New("unknown firefighter")
)

// WallLayout 墙体布局方式
type WallLayout string

const (
	WallLayoutFull  WallLayout = "full"  // 所有相邻格子之间都有墙
	WallLayoutRooms WallLayout = "rooms" // 只放置房间隔断
)

// POIPlacement 指定位置的 POI
type POIPlacement struct {
	Pos        Position `yaml:"pos"`
	FalseAlarm bool     `yaml:"false_alarm"`
}

// Config 模拟配置
// 布局列表为 nil 时按棋盘大小推导默认布局
type Config struct {
	Width             int            `yaml:"width"`
	Height            int            `yaml:"height"`
	Firefighters      int            `yaml:"firefighters"`
	POIs              int            `yaml:"pois"`
	WallHealth        int            `yaml:"wall_health"`
	WallLayout        WallLayout     `yaml:"wall_layout"`
	Exits             []Position     `yaml:"exits"`
	Hotspots          []Position     `yaml:"hotspots"`
	FirefighterStarts []Position     `yaml:"firefighter_starts"`
	POIPlacements     []POIPlacement `yaml:"poi_placements"`
	Rules             Rules          `yaml:"rules"`
}

// DefaultConfig 默认配置：10x8 棋盘，5 名消防员，6 个 POI
func DefaultConfig() Config {
	return Config{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		Firefighters: DefaultFirefighters,
		POIs:         DefaultPOIs,
		WallHealth:   DefaultWallHealth,
		WallLayout:   WallLayoutFull,
		Rules:        DefaultRules(),
	}
}

// 房间隔断（rooms 布局）
var roomPartitions = [][2]Position{
	{{X: 2, Y: 1}, {X: 2, Y: 2}}, {{X: 2, Y: 2}, {X: 2, Y: 3}},
	{{X: 6, Y: 1}, {X: 6, Y: 2}}, {{X: 6, Y: 2}, {X: 6, Y: 3}},
	{{X: 1, Y: 2}, {X: 2, Y: 2}}, {{X: 3, Y: 2}, {X: 4, Y: 2}},
	{{X: 5, Y: 2}, {X: 6, Y: 2}}, {{X: 7, Y: 2}, {X: 8, Y: 2}},
}

var defaultHotspots = []Position{{X: 3, Y: 3}, {X: 6, Y: 4}, {X: 4, Y: 6}}

func defaultExits(w, h int) []Position {
	return clip([]Position{{X: 0, Y: 3}, {X: 0, Y: 4}, {X: w - 1, Y: 3}, {X: w - 1, Y: 4}}, w, h)
}

func defaultStarts(w, h int) []Position {
	return clip([]Position{{X: 1, Y: 3}, {X: 1, Y: 4}, {X: w - 2, Y: 3}, {X: w - 2, Y: 4}, {X: w/2 - 1, Y: 0}}, w, h)
}

func clip(ps []Position, w, h int) []Position {
	out := make([]Position, 0, len(ps))
	for _, p := range ps {
		if p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h {
			out = append(out, p)
		}
	}
	return out
}

// Policy 每个消防员被激活时的决策
type Policy interface {
	Act(sim *Simulation, ff *Firefighter)
}

// Outcome 模拟结局
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeDefeat:
		return "defeat"
	}
	return "ongoing"
}

// Simulation 一局模拟的全部状态（单线程使用）
type Simulation struct {
	Board          *Board
	Walls          *WallRegistry
	POIs           *POIRegistry
	Firefighters   []*Firefighter
	Rules          Rules
	ExplosionCount int
	StepIndex      int

	config     Config
	rng        Rand
	policy     Policy
	pathfinder *Pathfinder
	env        *Environment

	activation []*Firefighter
	recording  bool
	actions    []ActionRecord
	lastReport *StepReport
}

// NewSimulation 按配置创建模拟
// POI 抽样和误报判定使用 rng；policy 为 nil 时消防员不行动
func NewSimulation(cfg Config, rng Rand, policy Policy) (*Simulation, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		Board:  NewBoard(cfg.Width, cfg.Height),
		Walls:  NewWallRegistry(),
		POIs:   NewPOIRegistry(),
		Rules:  cfg.Rules,
		config: cfg,
		rng:    rng,
		policy: policy,
	}
	sim.pathfinder = NewPathfinder(sim.Board, sim.Walls)
	sim.env = &Environment{Board: sim.Board, Walls: sim.Walls, Rules: sim.Rules, Rand: rng}

	sim.setupExits()
	sim.setupWalls()
	sim.setupFirefighters()
	sim.setupHotspots()
	sim.setupPOIs()
	sim.activation = append([]*Firefighter(nil), sim.Firefighters...)
	return sim, nil
}

// normalize 校验配置并补全默认布局
func normalize(cfg Config) (Config, error) {
	if cfg.Width < 2 || cfg.Height < 2 || cfg.Width > MaxBoardSide || cfg.Height > MaxBoardSide {
		return cfg, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrInvalidDimensions)
	}
	if cfg.WallHealth < 1 {
		return cfg, fmt.Errorf("wall health %d: %w", cfg.WallHealth, ErrInvalidWallHealth)
	}
	if cfg.Firefighters < 0 || cfg.POIs < 0 {
		return cfg, fmt.Errorf("firefighters=%d pois=%d: %w", cfg.Firefighters, cfg.POIs, ErrInvalidCounts)
	}

	switch cfg.WallLayout {
	case "":
		cfg.WallLayout = WallLayoutFull
	case WallLayoutFull, WallLayoutRooms:
	default:
		return cfg, fmt.Errorf("wall layout %q: %w", cfg.WallLayout, ErrInvalidLayout)
	}

	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	for _, p := range []float64{cfg.Rules.SmokeIgniteChance, cfg.Rules.FireSpreadChance, cfg.Rules.ExplosionChance, cfg.Rules.FalseAlarmChance} {
		if p < 0 || p > 1 {
			return cfg, fmt.Errorf("probability %v: %w", p, ErrInvalidRules)
		}
	}
	if cfg.Rules.DefeatFireCells < 0 {
		return cfg, fmt.Errorf("defeat fire cells %d: %w", cfg.Rules.DefeatFireCells, ErrInvalidRules)
	}

	if cfg.Exits == nil {
		cfg.Exits = defaultExits(cfg.Width, cfg.Height)
	}
	if cfg.Hotspots == nil {
		cfg.Hotspots = clip(defaultHotspots, cfg.Width, cfg.Height)
	}
	if cfg.FirefighterStarts == nil {
		cfg.FirefighterStarts = defaultStarts(cfg.Width, cfg.Height)
	}

	inBounds := func(p Position) bool {
		return p.X >= 0 && p.X < cfg.Width && p.Y >= 0 && p.Y < cfg.Height
	}
	exits := make(map[Position]bool, len(cfg.Exits))
	for _, p := range cfg.Exits {
		if !inBounds(p) {
			return cfg, fmt.Errorf("exit %v: %w", p, ErrInvalidLayout)
		}
		exits[p] = true
	}
	for _, p := range cfg.Hotspots {
		if !inBounds(p) || exits[p] {
			return cfg, fmt.Errorf("hotspot %v: %w", p, ErrInvalidLayout)
		}
	}
	for _, p := range cfg.FirefighterStarts {
		if !inBounds(p) {
			return cfg, fmt.Errorf("firefighter start %v: %w", p, ErrInvalidLayout)
		}
	}
	for _, pp := range cfg.POIPlacements {
		if !inBounds(pp.Pos) {
			return cfg, fmt.Errorf("poi %v: %w", pp.Pos, ErrInvalidLayout)
		}
	}
	if cfg.Firefighters > len(cfg.FirefighterStarts) {
		return cfg, fmt.Errorf("firefighters=%d starts=%d: %w", cfg.Firefighters, len(cfg.FirefighterStarts), ErrInvalidCounts)
	}
	if len(cfg.POIPlacements) > 0 {
		cfg.POIs = len(cfg.POIPlacements)
	}
	return cfg, nil
}

func (s *Simulation) setupExits() {
	for _, p := range s.config.Exits {
		s.Board.setCellKind(p, CellExit)
	}
}

func (s *Simulation) setupWalls() {
	health := s.config.WallHealth
	if s.config.WallLayout == WallLayoutFull {
		for y := 0; y < s.Board.Height; y++ {
			for x := 0; x < s.Board.Width; x++ {
				p := Position{X: x, Y: y}
				if x < s.Board.Width-1 {
					s.Walls.Add(p, Position{X: x + 1, Y: y}, health)
				}
				if y < s.Board.Height-1 {
					s.Walls.Add(p, Position{X: x, Y: y + 1}, health)
				}
			}
		}
	}
	// full 布局下隔断已存在，Add 会忽略
	for _, w := range roomPartitions {
		if s.Board.InBounds(w[0]) && s.Board.InBounds(w[1]) {
			s.Walls.Add(w[0], w[1], health)
		}
	}
}

func (s *Simulation) setupFirefighters() {
	for i := 0; i < s.config.Firefighters; i++ {
		s.Firefighters = append(s.Firefighters, NewFirefighter(i, s.config.FirefighterStarts[i]))
	}
}

func (s *Simulation) setupHotspots() {
	for _, p := range s.config.Hotspots {
		s.Board.setCellKind(p, CellHotspot)
		s.Board.SetFireLevel(p, FireFire)
	}
}

// setupPOIs 放置 POI
// 候选格：无火、非出口、没有消防员；按行优先收集后随机抽取
func (s *Simulation) setupPOIs() {
	if len(s.config.POIPlacements) > 0 {
		for _, pp := range s.config.POIPlacements {
			s.POIs.Add(pp.Pos, pp.FalseAlarm)
		}
		return
	}

	var candidates []Position
	for y := 0; y < s.Board.Height; y++ {
		for x := 0; x < s.Board.Width; x++ {
			p := Position{X: x, Y: y}
			if s.Board.FireLevelAt(p) == FireClear && !s.Board.IsExit(p) && s.FirefighterAt(p) == nil {
				candidates = append(candidates, p)
			}
		}
	}
	n := s.config.POIs
	if n > len(candidates) {
		n = len(candidates)
	}
	if n == 0 {
		return
	}
	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, p := range candidates[:n] {
		s.POIs.Add(p, s.rng.Float64() < s.Rules.FalseAlarmChance)
	}
}

// Config 返回补全后的配置
func (s *Simulation) Config() Config {
	return s.config
}

// Pathfinder 返回绑定当前棋盘的寻路器
func (s *Simulation) Pathfinder() *Pathfinder {
	return s.pathfinder
}

// FirefighterAt 返回位于 p 的第一个消防员
func (s *Simulation) FirefighterAt(p Position) *Firefighter {
	for _, ff := range s.Firefighters {
		if ff.Pos == p {
			return ff
		}
	}
	return nil
}

// Firefighter 按 ID 查找消防员
func (s *Simulation) Firefighter(id int) (*Firefighter, error) {
	if id < 0 || id >= len(s.Firefighters) {
		return nil, fmt.Errorf("firefighter %d: %w", id, ErrUnknownFirefighter)
	}
	return s.Firefighters[id], nil
}

// ActivationOrder 本回合（或上一回合）的激活顺序
// 回合开始前为 ID 顺序
func (s *Simulation) ActivationOrder() []*Firefighter {
	return s.activation
}

// Step 推进一个完整回合：随机顺序激活消防员，然后火焰扩散和爆炸判定
func (s *Simulation) Step() StepReport {
	order := append([]*Firefighter(nil), s.Firefighters...)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	s.activation = order

	s.actions = nil
	s.recording = true
	for _, ff := range order {
		ff.ResetActionPoints()
		if s.policy != nil {
			s.policy.Act(s, ff)
		}
	}
	s.recording = false

	spread := s.env.SpreadFire()
	explosions := s.env.CheckExplosions()
	s.ExplosionCount += len(explosions)
	s.StepIndex++

	report := StepReport{
		Step:       s.StepIndex,
		Actions:    s.actions,
		Ignited:    spread.Ignited,
		NewSmoke:   spread.NewSmoke,
		Explosions: explosions,
		Stats:      s.Stats(),
		Outcome:    s.Outcome(),
	}
	for _, ff := range order {
		report.ActivationOrder = append(report.ActivationOrder, ff.ID)
	}
	for i := range report.Actions {
		report.Actions[i].Step = s.StepIndex
	}
	s.actions = nil
	s.lastReport = &report
	return report
}

// LastReport 最近一次 Step 的结果
func (s *Simulation) LastReport() (StepReport, bool) {
	if s.lastReport == nil {
		return StepReport{}, false
	}
	return *s.lastReport, true
}

// Outcome 当前结局：没有未获救的 POI 为胜利，火焰格数超过阈值为失败
func (s *Simulation) Outcome() Outcome {
	if s.POIs.Unrescued() == 0 {
		return OutcomeVictory
	}
	if s.Board.Count(FireFire) > s.Rules.DefeatFireCells {
		return OutcomeDefeat
	}
	return OutcomeOngoing
}

func (s *Simulation) record(rec ActionRecord) {
	if s.recording {
		s.actions = append(s.actions, rec)
	}
}

// Move 手动移动消防员
func (s *Simulation) Move(id int, target Position) (bool, error) {
	ff, err := s.Firefighter(id)
	if err != nil {
		return false, err
	}
	return ff.Move(target, s), nil
}

// Extinguish 手动灭火
func (s *Simulation) Extinguish(id int) (bool, error) {
	ff, err := s.Firefighter(id)
	if err != nil {
		return false, err
	}
	return ff.Extinguish(s), nil
}

// PickUp 手动拾取
func (s *Simulation) PickUp(id int) (bool, error) {
	ff, err := s.Firefighter(id)
	if err != nil {
		return false, err
	}
	return ff.PickUp(s), nil
}

// DropAtExit 手动在出口放下
func (s *Simulation) DropAtExit(id int) (bool, error) {
	ff, err := s.Firefighter(id)
	if err != nil {
		return false, err
	}
	return ff.DropAtExit(s), nil
}
