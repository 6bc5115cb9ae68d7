package core

// Role 消防员角色，每回合重新分配
type Role int

const (
	RoleUnassigned   Role = iota // 尚未分配
	RoleRescuer                  // 救援者
	RoleExtinguisher             // 灭火者
)

// String 返回角色名，与外部接口保持一致
func (r Role) String() string {
	switch r {
	case RoleUnassigned:
		return "unassigned"
	case RoleRescuer:
		return "rescuer"
	case RoleExtinguisher:
		return "fire_fighter"
	}
	return "unknown"
}

// ParseRole 解析角色名
func ParseRole(s string) (Role, bool) {
	switch s {
	case "unassigned":
		return RoleUnassigned, true
	case "rescuer":
		return RoleRescuer, true
	case "fire_fighter":
		return RoleExtinguisher, true
	}
	return RoleUnassigned, false
}
