package core

import "fmt"

// CommandKind 手动指令类型
type CommandKind string

const (
	CommandMove       CommandKind = "move"
	CommandExtinguish CommandKind = "extinguish"
	CommandPickUp     CommandKind = "pickup"
	CommandDrop       CommandKind = "drop"
)

// Command 针对单个消防员的手动指令
// Target 仅对 move 有效
type Command struct {
	Kind          CommandKind
	FirefighterID int
	Target        Position
}

// ApplyCommand 将指令应用到模拟，复用消防员的行动原语
// 行动失败返回 false；未知指令或未知消防员返回错误
func ApplyCommand(sim *Simulation, cmd Command) (bool, error) {
	if sim == nil {
		return false, fmt.Errorf("apply %s: nil simulation", cmd.Kind)
	}

	switch cmd.Kind {
	case CommandMove:
		return sim.Move(cmd.FirefighterID, cmd.Target)
	case CommandExtinguish:
		return sim.Extinguish(cmd.FirefighterID)
	case CommandPickUp:
		return sim.PickUp(cmd.FirefighterID)
	case CommandDrop:
		return sim.DropAtExit(cmd.FirefighterID)
	}
	return false, fmt.Errorf("unknown command %q", cmd.Kind)
}
