package util

import "math/rand"

func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	src := rand.NewSource(seed)
	return rand.New(src)
}

// Scripted 可预测的随机源，用于测试
// Float64 依次返回 Floats，耗尽后返回 Default
// Shuffle 默认保持原顺序，Reverse 为真时倒序
type Scripted struct {
	Floats  []float64
	Default float64
	Reverse bool
	Draws   int // 已发生的 Float64 调用次数
}

// Fixed Float64 恒定返回 v 的随机源
func Fixed(v float64) *Scripted {
	return &Scripted{Default: v}
}

func (s *Scripted) Float64() float64 {
	s.Draws++
	if len(s.Floats) > 0 {
		v := s.Floats[0]
		s.Floats = s.Floats[1:]
		return v
	}
	return s.Default
}

func (s *Scripted) Shuffle(n int, swap func(i, j int)) {
	if !s.Reverse {
		return
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}
