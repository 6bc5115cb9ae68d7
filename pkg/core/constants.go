package core

// 默认棋盘配置
const (
	DefaultWidth        = 10
	DefaultHeight       = 8
	DefaultFirefighters = 5
	DefaultPOIs         = 6
	DefaultWallHealth   = 2
)

// 消防员配置
const (
	MaxActionPoints = 4 // 每回合行动点上限
	RescuerCount    = 3 // 每次角色分配选出的救援者数量
)

// 环境概率配置（每次判定独立抽样）
const (
	DefaultSmokeIgniteChance = 0.30 // 烟雾 → 火焰
	DefaultFireSpreadChance  = 0.20 // 火焰向相邻空格扩散烟雾
	DefaultExplosionChance   = 0.10 // 着火的热点格爆炸
	DefaultFalseAlarmChance  = 0.30 // POI 为误报的概率
	DefaultDefeatFireCells   = 15   // 火焰格数超过该值判负
)

// 引用占位值
const (
	NoFirefighter = -1 // POI 未被携带
	NoPOI         = -1 // 消防员未携带 POI
)

// Unreachable 不可达路径的长度
const Unreachable = int(^uint(0) >> 1)

// MaxBoardSide 棋盘单边最大格数
const MaxBoardSide = 64
