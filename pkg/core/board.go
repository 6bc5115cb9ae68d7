package core

// FireLevel 格子的火焰状态
type FireLevel int

const (
	FireClear FireLevel = iota // 无火
	FireSmoke                  // 烟雾
	FireFire                   // 火焰
)

// String 返回火焰状态名，与外部接口保持一致
func (l FireLevel) String() string {
	switch l {
	case FireClear:
		return "CLEAR"
	case FireSmoke:
		return "SMOKE"
	case FireFire:
		return "FIRE"
	}
	return "UNKNOWN"
}

// ParseFireLevel 解析火焰状态名
func ParseFireLevel(s string) (FireLevel, bool) {
	switch s {
	case "CLEAR":
		return FireClear, true
	case "SMOKE":
		return FireSmoke, true
	case "FIRE":
		return FireFire, true
	}
	return FireClear, false
}

// CellKind 格子类型，初始化后不再变化
type CellKind int

const (
	CellNormal  CellKind = iota // 普通格
	CellExit                    // 出口
	CellHotspot                 // 热点（着火时可能爆炸）
)

// String 返回格子类型名
func (k CellKind) String() string {
	switch k {
	case CellNormal:
		return "NORMAL"
	case CellExit:
		return "EXIT"
	case CellHotspot:
		return "HOTSPOT"
	}
	return "UNKNOWN"
}

// Board 棋盘：每个格子的火焰状态和类型
type Board struct {
	Width  int
	Height int
	fire   []FireLevel
	kinds  []CellKind
}

// NewBoard 创建全部为普通空格的棋盘
func NewBoard(width, height int) *Board {
	return &Board{
		Width:  width,
		Height: height,
		fire:   make([]FireLevel, width*height),
		kinds:  make([]CellKind, width*height),
	}
}

// InBounds 检查坐标是否在棋盘内
func (b *Board) InBounds(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

func (b *Board) index(p Position) int {
	return p.Y*b.Width + p.X
}

// FireLevelAt 获取火焰状态，越界视为无火
func (b *Board) FireLevelAt(p Position) FireLevel {
	if !b.InBounds(p) {
		return FireClear
	}
	return b.fire[b.index(p)]
}

// SetFireLevel 设置火焰状态，越界忽略
func (b *Board) SetFireLevel(p Position, level FireLevel) {
	if b.InBounds(p) {
		b.fire[b.index(p)] = level
	}
}

// CellKindAt 获取格子类型，越界视为普通格
func (b *Board) CellKindAt(p Position) CellKind {
	if !b.InBounds(p) {
		return CellNormal
	}
	return b.kinds[b.index(p)]
}

func (b *Board) setCellKind(p Position, kind CellKind) {
	if b.InBounds(p) {
		b.kinds[b.index(p)] = kind
	}
}

// IsExit 检查是否为出口
func (b *Board) IsExit(p Position) bool {
	return b.CellKindAt(p) == CellExit
}

// Exits 按行优先顺序返回所有出口
func (b *Board) Exits() []Position {
	var exits []Position
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.kinds[y*b.Width+x] == CellExit {
				exits = append(exits, Position{X: x, Y: y})
			}
		}
	}
	return exits
}

// CellsWith 按行优先顺序返回指定火焰状态的格子
func (b *Board) CellsWith(level FireLevel) []Position {
	var cells []Position
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.fire[y*b.Width+x] == level {
				cells = append(cells, Position{X: x, Y: y})
			}
		}
	}
	return cells
}

// Count 统计指定火焰状态的格子数
func (b *Board) Count(level FireLevel) int {
	n := 0
	for _, l := range b.fire {
		if l == level {
			n++
		}
	}
	return n
}

// replaceFire 用新的火焰网格整体替换当前网格
func (b *Board) replaceFire(next []FireLevel) {
	b.fire = next
}

func (b *Board) fireCopy() []FireLevel {
	out := make([]FireLevel, len(b.fire))
	copy(out, b.fire)
	return out
}
