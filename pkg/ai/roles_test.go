package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashpoint/internal/util"
	"flashpoint/pkg/core"
)

// lineSim 5x2 无墙棋盘，出口在 (0,0)
func lineSim(t *testing.T, policy core.Policy, starts []core.Position, pois []core.POIPlacement) *core.Simulation {
	t.Helper()
	cfg := core.Config{
		Width:             5,
		Height:            2,
		Firefighters:      len(starts),
		WallHealth:        2,
		WallLayout:        core.WallLayoutRooms,
		Exits:             []core.Position{core.Pos(0, 0)},
		Hotspots:          []core.Position{},
		FirefighterStarts: starts,
		POIPlacements:     pois,
	}
	sim, err := core.NewSimulation(cfg, util.Fixed(0.99), policy)
	require.NoError(t, err)
	return sim
}

func countRoles(sim *core.Simulation) (rescuers, extinguishers int) {
	for _, ff := range sim.Firefighters {
		switch ff.Role {
		case core.RoleRescuer:
			rescuers++
		case core.RoleExtinguisher:
			extinguishers++
		}
	}
	return
}

func TestAssignRoles_ThreeRescuers(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.WallLayout = core.WallLayoutRooms
	sim, err := core.NewSimulation(cfg, util.New(3), nil)
	require.NoError(t, err)

	AssignRoles(sim, sim.Firefighters, DefaultConfig)
	r, e := countRoles(sim)
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, e)
}

func TestAssignRoles_NoActivePOIs(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.POIs = 0
	sim, err := core.NewSimulation(cfg, util.New(3), nil)
	require.NoError(t, err)

	AssignRoles(sim, sim.Firefighters, DefaultConfig)
	r, e := countRoles(sim)
	assert.Equal(t, 0, r)
	assert.Equal(t, 5, e)
}

func TestAssignRoles_LowestScoresWin(t *testing.T) {
	sim := lineSim(t, nil,
		[]core.Position{core.Pos(0, 1), core.Pos(4, 0), core.Pos(3, 1)},
		[]core.POIPlacement{{Pos: core.Pos(4, 1)}})

	AssignRoles(sim, sim.Firefighters, Config{Rescuers: 2})
	assert.Equal(t, core.RoleExtinguisher, sim.Firefighters[0].Role)
	assert.Equal(t, core.RoleRescuer, sim.Firefighters[1].Role)
	assert.Equal(t, core.RoleRescuer, sim.Firefighters[2].Role)
}

func TestAssignRoles_TiesFollowOrder(t *testing.T) {
	sim := lineSim(t, nil,
		[]core.Position{core.Pos(1, 0), core.Pos(3, 0)},
		[]core.POIPlacement{{Pos: core.Pos(2, 0)}})
	a, b := sim.Firefighters[0], sim.Firefighters[1]
	cfg := Config{Rescuers: 1}

	AssignRoles(sim, []*core.Firefighter{a, b}, cfg)
	assert.Equal(t, core.RoleRescuer, a.Role)
	assert.Equal(t, core.RoleExtinguisher, b.Role)

	AssignRoles(sim, []*core.Firefighter{b, a}, cfg)
	assert.Equal(t, core.RoleRescuer, b.Role)
	assert.Equal(t, core.RoleExtinguisher, a.Role)
}

func TestAssignRoles_UnreachableKeepsOrder(t *testing.T) {
	// 完整墙体布局下所有 POI 都不可达
	sim, err := core.NewSimulation(core.DefaultConfig(), util.New(9), nil)
	require.NoError(t, err)

	order := []*core.Firefighter{sim.Firefighters[4], sim.Firefighters[2], sim.Firefighters[0], sim.Firefighters[1], sim.Firefighters[3]}
	AssignRoles(sim, order, DefaultConfig)
	for i, ff := range order {
		if i < 3 {
			assert.Equal(t, core.RoleRescuer, ff.Role, "ff %d", ff.ID)
		} else {
			assert.Equal(t, core.RoleExtinguisher, ff.Role, "ff %d", ff.ID)
		}
	}
}

func TestAssignRoles_CarriedPOIScoring(t *testing.T) {
	sim := lineSim(t, nil,
		[]core.Position{core.Pos(2, 0), core.Pos(4, 1)},
		[]core.POIPlacement{{Pos: core.Pos(2, 0)}})
	carrier := sim.Firefighters[0]
	require.True(t, carrier.PickUp(sim))

	AssignRoles(sim, sim.Firefighters, DefaultConfig)
	r, _ := countRoles(sim)
	assert.Equal(t, 0, r, "only uncarried pois are scored by default")

	AssignRoles(sim, sim.Firefighters, Config{Rescuers: 1, ScoreCarriedPOIs: true})
	assert.Equal(t, core.RoleRescuer, carrier.Role)
	assert.Equal(t, core.RoleExtinguisher, sim.Firefighters[1].Role)
}
