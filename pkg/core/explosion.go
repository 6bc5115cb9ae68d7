package core

// Rand 模拟使用的随机源，*rand.Rand 满足该接口
// 所有随机抽样共享同一个源，测试可以注入固定序列
type Rand interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Rules 环境演化概率与胜负阈值
type Rules struct {
	SmokeIgniteChance float64 `yaml:"smoke_ignite_chance"`
	FireSpreadChance  float64 `yaml:"fire_spread_chance"`
	ExplosionChance   float64 `yaml:"explosion_chance"`
	FalseAlarmChance  float64 `yaml:"false_alarm_chance"`
	DefeatFireCells   int     `yaml:"defeat_fire_cells"`
}

// DefaultRules 默认规则
func DefaultRules() Rules {
	return Rules{
		SmokeIgniteChance: DefaultSmokeIgniteChance,
		FireSpreadChance:  DefaultFireSpreadChance,
		ExplosionChance:   DefaultExplosionChance,
		FalseAlarmChance:  DefaultFalseAlarmChance,
		DefeatFireCells:   DefaultDefeatFireCells,
	}
}

// SpreadResult 一次火焰扩散的统计
type SpreadResult struct {
	Ignited  int // 烟雾 → 火焰
	NewSmoke int // 空格 → 烟雾
}

// Environment 环境演化：先火焰扩散，再爆炸判定
type Environment struct {
	Board *Board
	Walls *WallRegistry
	Rules Rules
	Rand  Rand
}

// SpreadFire 火焰扩散（快照语义）
// 每个格子的变化都只依据本轮开始前的状态计算，结果在最后整体替换
func (e *Environment) SpreadFire() SpreadResult {
	var res SpreadResult
	b := e.Board
	next := b.fireCopy()

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			p := Position{X: x, Y: y}
			switch b.fire[b.index(p)] {
			case FireSmoke:
				if e.Rand.Float64() < e.Rules.SmokeIgniteChance {
					next[b.index(p)] = FireFire
					res.Ignited++
				}
			case FireFire:
				for _, d := range orthogonal {
					n := p.Add(d)
					if !b.InBounds(n) || b.fire[b.index(n)] != FireClear {
						continue
					}
					if e.Walls.HasIntactWallBetween(p, n) {
						continue
					}
					if e.Rand.Float64() < e.Rules.FireSpreadChance {
						if next[b.index(n)] != FireSmoke {
							res.NewSmoke++
						}
						next[b.index(n)] = FireSmoke
					}
				}
			}
		}
	}

	b.replaceFire(next)
	return res
}

// CheckExplosions 爆炸判定（原地修改）
// 按行优先扫描，后扫描的格子能看到前面爆炸造成的变化
func (e *Environment) CheckExplosions() []Position {
	var centers []Position
	b := e.Board
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			p := Position{X: x, Y: y}
			if b.FireLevelAt(p) != FireFire || b.CellKindAt(p) != CellHotspot {
				continue
			}
			if e.Rand.Float64() < e.Rules.ExplosionChance {
				e.Explode(p)
				centers = append(centers, p)
			}
		}
	}
	return centers
}

// Explode 在 center 触发一次爆炸
// 四邻域墙体各受 1 点伤害，八邻域的空格变为烟雾（对角线忽略墙体）
func (e *Environment) Explode(center Position) {
	b := e.Board
	for _, d := range orthogonal {
		n := center.Add(d)
		if b.InBounds(n) {
			e.Walls.DamageWall(center, n, 1)
		}
	}
	for _, d := range surrounding {
		n := center.Add(d)
		if b.InBounds(n) && b.FireLevelAt(n) == FireClear {
			b.SetFireLevel(n, FireSmoke)
		}
	}
}
