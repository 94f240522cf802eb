package rbac

type Role string
type Action string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "members"
)

const (
	// ActionRead covers every query inside a workspace.
	ActionRead Action = "read"
	// ActionWrite covers posting, reacting and editing one's own content.
	ActionWrite Action = "write"
	// ActionModerate covers channel management.
	ActionModerate Action = "moderate"
	// ActionAdmin covers role changes, member removal and workspace settings.
	ActionAdmin Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMember:
		return action == ActionRead || action == ActionWrite
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleMember:
		return Role(role)
	default:
		return RoleMember
	}
}

// Valid reports whether role is one of the assignable workspace roles.
func Valid(role string) bool {
	return Role(role) == RoleAdmin || Role(role) == RoleMember
}
