package rbac

type Role string
type Action string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

const (
	ActionBrowse Action = "browse"
	ActionAsk    Action = "ask"
	ActionExport Action = "export"
	ActionEdit   Action = "edit"
	ActionAdmin  Action = "admin"
)

// Can reports whether role may perform action. Agents are anonymous readers.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleAgent:
		return action == ActionBrowse || action == ActionAsk || action == ActionExport
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleAgent, RoleAdmin:
		return Role(role)
	default:
		return RoleAgent
	}
}
