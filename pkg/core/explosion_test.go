package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashpoint/internal/util"
)

func certainRules() Rules {
	return Rules{
		SmokeIgniteChance: 1,
		FireSpreadChance:  1,
		ExplosionChance:   1,
		FalseAlarmChance:  0,
		DefeatFireCells:   DefaultDefeatFireCells,
	}
}

func TestSpreadFire_SmokeIgnitesWithoutCascade(t *testing.T) {
	b := NewBoard(3, 1)
	b.SetFireLevel(Pos(0, 0), FireSmoke)
	env := &Environment{Board: b, Walls: NewWallRegistry(), Rules: certainRules(), Rand: util.Fixed(0)}

	res := env.SpreadFire()
	assert.Equal(t, SpreadResult{Ignited: 1}, res)
	assert.Equal(t, FireFire, b.FireLevelAt(Pos(0, 0)))
	// 新生成的火焰在本轮不会继续扩散
	assert.Equal(t, FireClear, b.FireLevelAt(Pos(1, 0)))
}

func TestSpreadFire_NewSmokeDoesNotIgnite(t *testing.T) {
	b := NewBoard(3, 1)
	b.SetFireLevel(Pos(0, 0), FireFire)
	env := &Environment{Board: b, Walls: NewWallRegistry(), Rules: certainRules(), Rand: util.Fixed(0)}

	res := env.SpreadFire()
	assert.Equal(t, SpreadResult{NewSmoke: 1}, res)
	assert.Equal(t, FireSmoke, b.FireLevelAt(Pos(1, 0)))
	assert.Equal(t, FireClear, b.FireLevelAt(Pos(2, 0)))
}

func TestSpreadFire_DrawsOnlyForQualifyingNeighbours(t *testing.T) {
	b := NewBoard(3, 3)
	center := Pos(1, 1)
	b.SetFireLevel(center, FireFire)
	b.SetFireLevel(Pos(0, 1), FireSmoke)
	walls := NewWallRegistry()
	walls.Add(center, Pos(1, 2), 2)
	rng := util.Fixed(0.5)
	env := &Environment{Board: b, Walls: walls, Rules: DefaultRules(), Rand: rng}

	res := env.SpreadFire()
	// 烟雾格一次，火焰格只对上、右两个空格各一次
	assert.Equal(t, 3, rng.Draws)
	assert.Equal(t, SpreadResult{}, res)
	assert.Equal(t, FireFire, b.FireLevelAt(center))
	assert.Equal(t, FireSmoke, b.FireLevelAt(Pos(0, 1)))
}

func TestSpreadFire_WallBlocksUntilDestroyed(t *testing.T) {
	b := NewBoard(2, 1)
	b.SetFireLevel(Pos(0, 0), FireFire)
	walls := NewWallRegistry()
	walls.Add(Pos(0, 0), Pos(1, 0), 1)
	env := &Environment{Board: b, Walls: walls, Rules: certainRules(), Rand: util.Fixed(0)}

	env.SpreadFire()
	assert.Equal(t, FireClear, b.FireLevelAt(Pos(1, 0)))

	walls.DamageWall(Pos(0, 0), Pos(1, 0), 1)
	env.SpreadFire()
	assert.Equal(t, FireSmoke, b.FireLevelAt(Pos(1, 0)))
}

func TestExplode_DamagesWallsAndSmokesSurroundings(t *testing.T) {
	b := NewBoard(3, 3)
	walls := NewWallRegistry()
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			walls.Add(Pos(x, y), Pos(x+1, y), 2)
			walls.Add(Pos(x, y), Pos(x, y+1), 2)
		}
	}
	center := Pos(1, 1)
	b.SetFireLevel(center, FireFire)
	b.SetFireLevel(Pos(0, 0), FireFire)
	env := &Environment{Board: b, Walls: walls, Rules: certainRules(), Rand: util.Fixed(0)}

	env.Explode(center)

	for _, d := range orthogonal {
		w, ok := walls.Wall(center, center.Add(d))
		require.True(t, ok)
		assert.Equal(t, 1, w.Health)
	}
	w, _ := walls.Wall(Pos(0, 0), Pos(1, 0))
	assert.Equal(t, 2, w.Health, "walls away from the center are untouched")

	for _, d := range surrounding {
		n := center.Add(d)
		if n == Pos(0, 0) {
			assert.Equal(t, FireFire, b.FireLevelAt(n), "fire is not downgraded")
			continue
		}
		assert.Equal(t, FireSmoke, b.FireLevelAt(n), "%v", n)
	}
	assert.Equal(t, FireFire, b.FireLevelAt(center))
}

func TestCheckExplosions_RowMajorInPlace(t *testing.T) {
	b := NewBoard(3, 2)
	for _, p := range []Position{Pos(0, 0), Pos(2, 0)} {
		b.setCellKind(p, CellHotspot)
		b.SetFireLevel(p, FireFire)
	}
	b.setCellKind(Pos(1, 1), CellHotspot) // 未着火
	walls := NewWallRegistry()
	walls.Add(Pos(0, 0), Pos(1, 0), 2)
	walls.Add(Pos(1, 0), Pos(2, 0), 2)
	rng := util.Fixed(0)
	env := &Environment{Board: b, Walls: walls, Rules: certainRules(), Rand: rng}

	centers := env.CheckExplosions()
	assert.Equal(t, []Position{Pos(0, 0), Pos(2, 0)}, centers)
	assert.Equal(t, 2, rng.Draws, "only burning hotspots roll")

	assert.Equal(t, FireSmoke, b.FireLevelAt(Pos(1, 0)))
	assert.Equal(t, FireSmoke, b.FireLevelAt(Pos(1, 1)))
	for _, k := range walls.Keys() {
		w, _ := walls.Wall(k.A, k.B)
		assert.Equal(t, 1, w.Health)
	}
}

func TestCheckExplosions_NoDrawWhenChanceFails(t *testing.T) {
	b := NewBoard(2, 2)
	b.setCellKind(Pos(0, 0), CellHotspot)
	b.SetFireLevel(Pos(0, 0), FireFire)
	env := &Environment{Board: b, Walls: NewWallRegistry(), Rules: DefaultRules(), Rand: util.Fixed(0.5)}

	assert.Empty(t, env.CheckExplosions())
	assert.Equal(t, FireClear, b.FireLevelAt(Pos(1, 1)))
}

func TestSimulation_StepCountsExplosions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = certainRules()
	cfg.POIs = 0
	sim, err := NewSimulation(cfg, util.Fixed(0), nil)
	require.NoError(t, err)

	report := sim.Step()
	assert.Len(t, report.Explosions, 3)
	assert.Equal(t, 3, sim.ExplosionCount)
	assert.Equal(t, 3, report.Stats.ExplosionCount)

	// 满墙布局、耐久 2：每个热点四周的墙各受 1 点伤害，仍然完好
	for _, n := range []Position{Pos(3, 4), Pos(3, 2), Pos(4, 3), Pos(2, 3)} {
		w, ok := sim.Walls.Wall(Pos(3, 3), n)
		require.True(t, ok)
		assert.Equal(t, 1, w.Health, "wall (3,3)-%v", n)
	}
	untouched, _ := sim.Walls.Wall(Pos(0, 0), Pos(1, 0))
	assert.Equal(t, 2, untouched.Health)

	damaged := 0
	for _, k := range sim.Walls.Keys() {
		if w, _ := sim.Walls.Wall(k.A, k.B); w.Health < 2 {
			damaged++
		}
	}
	assert.Equal(t, 12, damaged)
	assert.Equal(t, sim.Walls.Len(), sim.Walls.IntactCount())
}

func TestSimulation_StepExplosionsBreakWeakWalls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = certainRules()
	cfg.POIs = 0
	cfg.WallHealth = 1
	sim, err := NewSimulation(cfg, util.Fixed(0), nil)
	require.NoError(t, err)

	sim.Step()
	assert.Equal(t, sim.Walls.Len()-12, sim.Walls.IntactCount())
	assert.False(t, sim.Walls.HasIntactWallBetween(Pos(3, 3), Pos(3, 4)))
}
