package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashpoint/internal/util"
)

func TestPathfinder_StartIsGoal(t *testing.T) {
	pf := NewPathfinder(NewBoard(4, 4), NewWallRegistry())
	assert.Equal(t, []Position{Pos(2, 2)}, pf.ShortestPath(Pos(2, 2), Pos(2, 2)))
	assert.Equal(t, 1, pf.PathLength(Pos(2, 2), Pos(2, 2)))

	_, ok := pf.NextStep(Pos(2, 2), Pos(2, 2))
	assert.False(t, ok)
}

func TestPathfinder_NeighbourOrder(t *testing.T) {
	pf := NewPathfinder(NewBoard(3, 3), NewWallRegistry())
	// 向下优先于向右
	path := pf.ShortestPath(Pos(0, 0), Pos(1, 1))
	assert.Equal(t, []Position{Pos(0, 0), Pos(0, 1), Pos(1, 1)}, path)
}

func TestPathfinder_WallsBlock(t *testing.T) {
	board := NewBoard(5, 5)
	walls := NewWallRegistry()
	center := Pos(2, 2)
	for _, d := range orthogonal {
		walls.Add(center, center.Add(d), 1)
	}
	pf := NewPathfinder(board, walls)

	assert.Nil(t, pf.ShortestPath(Pos(0, 0), center))
	assert.Equal(t, Unreachable, pf.PathLength(Pos(0, 0), center))
	assert.False(t, pf.CanTraverse(Pos(2, 1), center))

	walls.DamageWall(center, Pos(2, 1), 1)
	path := pf.ShortestPath(Pos(0, 0), center)
	require.NotNil(t, path)
	assert.Equal(t, center, path[len(path)-1])
	assert.Equal(t, Pos(2, 1), path[len(path)-2])
}

func TestPathfinder_CanTraverse(t *testing.T) {
	pf := NewPathfinder(NewBoard(2, 2), NewWallRegistry())
	assert.True(t, pf.CanTraverse(Pos(0, 0), Pos(1, 0)))
	assert.False(t, pf.CanTraverse(Pos(0, 0), Pos(1, 1)))
	assert.False(t, pf.CanTraverse(Pos(0, 0), Pos(-1, 0)))
	assert.False(t, pf.CanTraverse(Pos(0, 0), Pos(0, 0)))
}

// relaxDistances 用迭代松弛计算到 start 的最短步数，作为对照
func relaxDistances(board *Board, walls *WallRegistry, start Position) map[Position]int {
	dist := map[Position]int{start: 0}
	for changed := true; changed; {
		changed = false
		for y := 0; y < board.Height; y++ {
			for x := 0; x < board.Width; x++ {
				p := Pos(x, y)
				d, ok := dist[p]
				if !ok {
					continue
				}
				for _, dir := range orthogonal {
					n := p.Add(dir)
					if !board.InBounds(n) || walls.HasIntactWallBetween(p, n) {
						continue
					}
					if cur, seen := dist[n]; !seen || d+1 < cur {
						dist[n] = d + 1
						changed = true
					}
				}
			}
		}
	}
	return dist
}

func TestPathfinder_MatchesTrueDistance(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := util.New(seed)
		board := NewBoard(7, 5)
		walls := NewWallRegistry()
		for y := 0; y < board.Height; y++ {
			for x := 0; x < board.Width; x++ {
				if rng.Float64() < 0.35 {
					walls.Add(Pos(x, y), Pos(x+1, y), 1)
				}
				if rng.Float64() < 0.35 {
					walls.Add(Pos(x, y), Pos(x, y+1), 1)
				}
			}
		}
		pf := NewPathfinder(board, walls)
		start := Pos(rng.Intn(board.Width), rng.Intn(board.Height))
		dist := relaxDistances(board, walls, start)

		for y := 0; y < board.Height; y++ {
			for x := 0; x < board.Width; x++ {
				goal := Pos(x, y)
				path := pf.ShortestPath(start, goal)
				want, reachable := dist[goal]
				if !reachable {
					assert.Empty(t, path, "seed %d goal %v", seed, goal)
					continue
				}
				require.Len(t, path, want+1, "seed %d goal %v", seed, goal)
				assert.Equal(t, start, path[0])
				assert.Equal(t, goal, path[len(path)-1])
				for i := 1; i < len(path); i++ {
					assert.True(t, pf.CanTraverse(path[i-1], path[i]))
				}
			}
		}
	}
}
