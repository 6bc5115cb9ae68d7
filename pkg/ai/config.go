package ai

import "flashpoint/pkg/core"

// Config 决策策略参数
type Config struct {
	// Rescuers 每次角色分配选出的救援者数量
	Rescuers int `yaml:"rescuers"`

	// ScoreCarriedPOIs 角色评分时是否计入已被携带的 POI（按拾取位置计算）
	// 关闭时只计入地面上的 POI，最后一个 POI 被拾起后所有人转为灭火
	ScoreCarriedPOIs bool `yaml:"score_carried_pois"`
}

// DefaultConfig 默认参数
var DefaultConfig = Config{
	Rescuers:         core.RescuerCount,
	ScoreCarriedPOIs: false,
}
