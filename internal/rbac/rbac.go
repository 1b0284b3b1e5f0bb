package rbac

type Role string
type Action string

const (
	RoleMember    Role = "member"
	RoleSecretary Role = "secretary"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionProcess Action = "process"
	ActionSend    Action = "send"
	ActionAdmin   Action = "admin"
)

// Can reports whether role may perform action. Members only read; the
// secretary drafts minutes, runs processing and sends convocations.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleSecretary:
		return action == ActionRead || action == ActionWrite || action == ActionProcess || action == ActionSend
	case RoleMember:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleSecretary, RoleAdmin:
		return Role(role)
	default:
		return RoleMember
	}
}
