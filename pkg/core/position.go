package core

import "fmt"

// Position 格子坐标（值类型）
// x 轴横向向右，y 轴纵向向下，原点在左上角
type Position struct {
	X, Y int
}

// Pos 构造坐标
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add 坐标平移
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Less 按 x 再按 y 比较，用于墙体键的规范化
func (p Position) Less(o Position) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Y < o.Y
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Manhattan 曼哈顿距离
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// 四邻域方向，顺序固定：下、上、右、左
// 寻路和火焰扩散都依赖这个顺序来保证结果可复现
var orthogonal = [4]Position{
	{X: 0, Y: 1},  // 下
	{X: 0, Y: -1}, // 上
	{X: 1, Y: 0},  // 右
	{X: -1, Y: 0}, // 左
}

// 八邻域方向（四邻域 + 对角线），爆炸扩散烟雾使用
var surrounding = [8]Position{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 1, Y: 1},
	{X: -1, Y: -1},
	{X: 1, Y: -1},
	{X: -1, Y: 1},
}
