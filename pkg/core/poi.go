package core

// POI 兴趣点（潜在受困者），首次交互时揭示真假
type POI struct {
	ID         int
	Pos        Position
	Revealed   bool
	Rescued    bool
	CarriedBy  int // 携带者 ID，NoFirefighter 表示无人携带
	falseAlarm bool
}

// OnBoard POI 仍在地面上（未被携带且未获救）
func (p *POI) OnBoard() bool {
	return !p.Rescued && p.CarriedBy == NoFirefighter
}

// FalseAlarm 仅在已揭示时返回真假结果
func (p *POI) FalseAlarm() (falseAlarm bool, known bool) {
	if !p.Revealed {
		return false, false
	}
	return p.falseAlarm, true
}

// POIRegistry 有序的 POI 集合
// 携带关系的两端只在这里的状态转换中同时更新
type POIRegistry struct {
	pois    []*POI
	nextID  int
	rescued int
}

// NewPOIRegistry 创建空集合
func NewPOIRegistry() *POIRegistry {
	return &POIRegistry{}
}

// Add 添加 POI，ID 按添加顺序分配
func (r *POIRegistry) Add(pos Position, falseAlarm bool) *POI {
	poi := &POI{
		ID:         r.nextID,
		Pos:        pos,
		CarriedBy:  NoFirefighter,
		falseAlarm: falseAlarm,
	}
	r.nextID++
	r.pois = append(r.pois, poi)
	return poi
}

// At 返回该位置上第一个仍在地面上的 POI
func (r *POIRegistry) At(pos Position) *POI {
	for _, poi := range r.pois {
		if poi.Pos == pos && poi.OnBoard() {
			return poi
		}
	}
	return nil
}

// ByID 按 ID 查找（已删除的误报返回 nil）
func (r *POIRegistry) ByID(id int) *POI {
	for _, poi := range r.pois {
		if poi.ID == id {
			return poi
		}
	}
	return nil
}

// Active 返回所有仍在地面上的 POI，保持集合顺序
func (r *POIRegistry) Active() []*POI {
	var out []*POI
	for _, poi := range r.pois {
		if poi.OnBoard() {
			out = append(out, poi)
		}
	}
	return out
}

// Pending 返回所有未获救的 POI（含被携带的），保持集合顺序
func (r *POIRegistry) Pending() []*POI {
	var out []*POI
	for _, poi := range r.pois {
		if !poi.Rescued {
			out = append(out, poi)
		}
	}
	return out
}

// Unrescued 未获救的 POI 数量（含被携带的）
func (r *POIRegistry) Unrescued() int {
	n := 0
	for _, poi := range r.pois {
		if !poi.Rescued {
			n++
		}
	}
	return n
}

// Reveal 揭示 POI，返回是否为真实受困者
// 误报会在同一调用中从集合删除
func (r *POIRegistry) Reveal(poi *POI) bool {
	poi.Revealed = true
	if poi.falseAlarm {
		r.remove(poi)
		return false
	}
	return true
}

// PickUp 建立双向携带关系，调用方需先确认 POI 可拾取
func (r *POIRegistry) PickUp(poi *POI, ff *Firefighter) {
	poi.CarriedBy = ff.ID
	ff.CarryingPOI = poi.ID
}

// DropAtExit 标记获救并解除携带关系
func (r *POIRegistry) DropAtExit(ff *Firefighter) bool {
	poi := r.ByID(ff.CarryingPOI)
	if poi == nil {
		return false
	}
	poi.Rescued = true
	poi.CarriedBy = NoFirefighter
	ff.CarryingPOI = NoPOI
	r.rescued++
	return true
}

// RescuedCount 累计获救数量
func (r *POIRegistry) RescuedCount() int {
	return r.rescued
}

// Len POI 数量（不含已删除的误报）
func (r *POIRegistry) Len() int {
	return len(r.pois)
}

// All 返回集合内全部 POI 的副本
func (r *POIRegistry) All() []POI {
	out := make([]POI, len(r.pois))
	for i, poi := range r.pois {
		out[i] = *poi
	}
	return out
}

func (r *POIRegistry) remove(target *POI) {
	for i, poi := range r.pois {
		if poi == target {
			r.pois = append(r.pois[:i], r.pois[i+1:]...)
			return
		}
	}
}
