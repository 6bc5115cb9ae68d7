package core

// ActionKind 行动类型
type ActionKind string

const (
	ActionMove       ActionKind = "move"
	ActionExtinguish ActionKind = "extinguish"
	ActionPickUp     ActionKind = "pickup"
	ActionDrop       ActionKind = "drop"
)

// DetailFalseAlarm 拾取时揭示为误报
const DetailFalseAlarm = "false_alarm"

// ActionRecord 一次行动尝试的记录
type ActionRecord struct {
	Step          int
	FirefighterID int
	Role          Role
	Action        ActionKind
	From          Position
	To            Position
	POI           int // 涉及的 POI，NoPOI 表示无
	Success       bool
	Detail        string
}

func newRecord(f *Firefighter, kind ActionKind, to Position) ActionRecord {
	return ActionRecord{
		FirefighterID: f.ID,
		Role:          f.Role,
		Action:        kind,
		From:          f.Pos,
		To:            to,
		POI:           NoPOI,
	}
}

// StepReport 一个回合的执行结果
type StepReport struct {
	Step            int
	ActivationOrder []int
	Actions         []ActionRecord
	Ignited         int
	NewSmoke        int
	Explosions      []Position
	Stats           Stats
	Outcome         Outcome
}
