package core

import (
	"container/list"

	"github.com/zyedidia/generic/mapset"
)

// Pathfinder 基于棋盘和墙体表的广度优先寻路
// 不缓存任何状态，每次调用都读取当前的墙体情况
type Pathfinder struct {
	board *Board
	walls *WallRegistry
}

// NewPathfinder 创建寻路器
func NewPathfinder(board *Board, walls *WallRegistry) *Pathfinder {
	return &Pathfinder{board: board, walls: walls}
}

type stepNode struct {
	Pos  Position
	Prev *stepNode
}

// CanTraverse 检查能否从 a 走到相邻的 b
func (pf *Pathfinder) CanTraverse(a, b Position) bool {
	if !pf.board.InBounds(b) {
		return false
	}
	if Manhattan(a, b) != 1 {
		return false
	}
	return !pf.walls.HasIntactWallBetween(a, b)
}

// ShortestPath 返回从 start 到 goal 的最短路径（包含起点和终点）
// start == goal 时返回 [start]，不可达时返回 nil
func (pf *Pathfinder) ShortestPath(start, goal Position) []Position {
	if start == goal {
		return []Position{start}
	}

	queue := list.New()
	visited := mapset.New[Position]()
	queue.PushBack(&stepNode{Pos: start})
	visited.Put(start)

	for queue.Len() > 0 {
		n := queue.Remove(queue.Front()).(*stepNode)
		for _, d := range orthogonal {
			next := n.Pos.Add(d)
			if visited.Has(next) || !pf.CanTraverse(n.Pos, next) {
				continue
			}
			node := &stepNode{Pos: next, Prev: n}
			if next == goal {
				return buildPath(node)
			}
			visited.Put(next)
			queue.PushBack(node)
		}
	}
	return nil
}

// PathLength 路径节点数，不可达返回 Unreachable
func (pf *Pathfinder) PathLength(start, goal Position) int {
	path := pf.ShortestPath(start, goal)
	if len(path) == 0 {
		return Unreachable
	}
	return len(path)
}

// NextStep 沿最短路径的下一格；已到达或不可达时返回 false
func (pf *Pathfinder) NextStep(start, goal Position) (Position, bool) {
	path := pf.ShortestPath(start, goal)
	if len(path) <= 1 {
		return Position{}, false
	}
	return path[1], true
}

func buildPath(end *stepNode) []Position {
	var path []Position
	for n := end; n != nil; n = n.Prev {
		path = append(path, n.Pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
