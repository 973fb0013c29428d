package authz

// Role is the access level carried by a user record and embedded in tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// ParseRole normalizes a raw role string, defaulting to the plain user role.
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleUser
	}
}

// Action is an operation an actor attempts against a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionRetry  Action = "retry"
	ActionCancel Action = "cancel"
)

// CanAct decides whether an actor may perform an action on a resource owned
// by ownerID and optionally assigned to assigneeID. The decision is pure and
// must be re-evaluated per request; roles and ownership can change between
// requests.
//
// Precedence: admins may do anything. Managers read and list everything but
// mutate only resources they own or are assigned to, and delete only
// resources they own. Plain users read and update resources they own or are
// assigned to, delete only resources they own; retry and cancel follow the
// same owner-only rule as delete for non-admin roles, except managers may
// also retry/cancel jobs assigned to them.
func CanAct(role Role, actorID, ownerID, assigneeID string, action Action) bool {
	if actorID == "" {
		return false
	}

	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		switch action {
		case ActionRead, ActionList:
			return true
		case ActionDelete:
			return actorID == ownerID
		default:
			return actorID == ownerID || (assigneeID != "" && actorID == assigneeID)
		}
	default:
		switch action {
		case ActionRead, ActionList, ActionUpdate:
			return actorID == ownerID || (assigneeID != "" && actorID == assigneeID)
		default:
			return actorID == ownerID
		}
	}
}

// CanSetRole decides whether an actor may assign targetRole to another user.
// Plain users never change roles; managers may set any role except admin.
func CanSetRole(actorRole Role, targetRole Role) bool {
	switch actorRole {
	case RoleAdmin:
		return true
	case RoleManager:
		return targetRole != RoleAdmin
	default:
		return false
	}
}
