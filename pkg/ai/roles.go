package ai

import (
	"sort"

	"flashpoint/pkg/core"
)

// roleScore 消防员到最近 POI 的路径节点数
type roleScore struct {
	ff    *core.Firefighter
	score int
}

// AssignRoles 按当前状态为所有消防员重新分配角色
// order 决定同分时的先后；得分最低的 rescuers 名成为救援者，其余灭火
// 没有可计分的 POI 时全部灭火
func AssignRoles(sim *core.Simulation, order []*core.Firefighter, cfg Config) {
	targets := scoringTargets(sim, cfg)
	if len(targets) == 0 {
		for _, ff := range order {
			ff.Role = core.RoleExtinguisher
		}
		return
	}

	pf := sim.Pathfinder()
	scores := make([]roleScore, 0, len(order))
	for _, ff := range order {
		best := core.Unreachable
		for _, poi := range targets {
			if n := pf.PathLength(ff.Pos, poi.Pos); n < best {
				best = n
			}
		}
		scores = append(scores, roleScore{ff: ff, score: best})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score < scores[j].score
	})
	for i, s := range scores {
		if i < cfg.Rescuers {
			s.ff.Role = core.RoleRescuer
		} else {
			s.ff.Role = core.RoleExtinguisher
		}
	}
}

func scoringTargets(sim *core.Simulation, cfg Config) []*core.POI {
	if cfg.ScoreCarriedPOIs {
		return sim.POIs.Pending()
	}
	return sim.POIs.Active()
}
