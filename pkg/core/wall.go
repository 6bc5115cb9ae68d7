package core

import "sort"

// Wall 墙体：记录生命值，可被爆炸破坏
type Wall struct {
	Health    int
	MaxHealth int
}

// IsDestroyed 墙体是否已被摧毁
func (w *Wall) IsDestroyed() bool {
	return w.Health <= 0
}

// TakeDamage 扣除生命值（下限为 0），返回是否已摧毁
func (w *Wall) TakeDamage(amount int) bool {
	if amount > 0 {
		w.Health -= amount
		if w.Health < 0 {
			w.Health = 0
		}
	}
	return w.IsDestroyed()
}

// WallKey 两个相邻格子之间墙体的规范化键，A 总是较小的坐标
type WallKey struct {
	A, B Position
}

// NewWallKey 规范化两个坐标的顺序
func NewWallKey(a, b Position) WallKey {
	if b.Less(a) {
		a, b = b, a
	}
	return WallKey{A: a, B: b}
}

// WallRegistry 墙体表
// 摧毁的墙体不会被删除，只在通行判定中视为不存在
type WallRegistry struct {
	walls map[WallKey]*Wall
}

// NewWallRegistry 创建空墙体表
func NewWallRegistry() *WallRegistry {
	return &WallRegistry{walls: make(map[WallKey]*Wall)}
}

// Add 在两个相邻格子之间添加墙体
// 不相邻或已存在时返回 false
func (r *WallRegistry) Add(a, b Position, health int) bool {
	if Manhattan(a, b) != 1 {
		return false
	}
	key := NewWallKey(a, b)
	if _, exists := r.walls[key]; exists {
		return false
	}
	r.walls[key] = &Wall{Health: health, MaxHealth: health}
	return true
}

// Wall 获取两个格子之间的墙体副本
func (r *WallRegistry) Wall(a, b Position) (Wall, bool) {
	w, ok := r.walls[NewWallKey(a, b)]
	if !ok {
		return Wall{}, false
	}
	return *w, true
}

// HasIntactWallBetween 两个格子之间是否有完好的墙
func (r *WallRegistry) HasIntactWallBetween(a, b Position) bool {
	w, ok := r.walls[NewWallKey(a, b)]
	return ok && !w.IsDestroyed()
}

// DamageWall 对两个格子之间的墙体造成伤害
// 没有墙体时不做任何事；返回墙体此时是否已摧毁
func (r *WallRegistry) DamageWall(a, b Position, amount int) bool {
	w, ok := r.walls[NewWallKey(a, b)]
	if !ok {
		return false
	}
	return w.TakeDamage(amount)
}

// Len 墙体总数（含已摧毁）
func (r *WallRegistry) Len() int {
	return len(r.walls)
}

// IntactCount 完好墙体数量
func (r *WallRegistry) IntactCount() int {
	n := 0
	for _, w := range r.walls {
		if !w.IsDestroyed() {
			n++
		}
	}
	return n
}

// Keys 返回排序后的全部墙体键
func (r *WallRegistry) Keys() []WallKey {
	keys := make([]WallKey, 0, len(r.walls))
	for k := range r.walls {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A.Less(keys[j].A)
		}
		return keys[i].B.Less(keys[j].B)
	})
	return keys
}
