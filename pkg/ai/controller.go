package ai

import (
	"flashpoint/pkg/ai/bt"
	"flashpoint/pkg/core"
)

// Controller 自动决策策略，实现 core.Policy
// 每次激活：恢复行动点后重新分配全体角色，再按角色执行一次行动
type Controller struct {
	config     Config
	blackboard Blackboard
	tree       bt.Node[*Blackboard]
}

// NewController 创建控制器，Rescuers 为 0 时使用默认值
func NewController(cfg Config) *Controller {
	if cfg.Rescuers <= 0 {
		cfg.Rescuers = core.RescuerCount
	}
	c := &Controller{config: cfg}
	c.tree = &bt.Selector[*Blackboard]{Children: []bt.Node[*Blackboard]{
		rescueTree(),
		fireTree(),
	}}
	return c
}

// Act 执行一个消防员的回合
func (c *Controller) Act(sim *core.Simulation, ff *core.Firefighter) {
	ff.ResetActionPoints()
	AssignRoles(sim, sim.ActivationOrder(), c.config)

	c.blackboard.Reset(sim, ff)
	_ = c.tree.Tick(&c.blackboard)
}

// NewSimulation 创建使用默认策略的模拟
func NewSimulation(cfg core.Config, rng core.Rand) (*core.Simulation, error) {
	return core.NewSimulation(cfg, rng, NewController(DefaultConfig))
}
