package rbac

type Role string
type Action string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionSubmit  Action = "submit"
	ActionVote    Action = "vote"
	ActionComment Action = "comment"
	ActionApprove Action = "approve"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleModerator:
		return action == ActionRead || action == ActionSubmit || action == ActionVote || action == ActionComment || action == ActionApprove
	case RoleUser:
		return action == ActionRead || action == ActionSubmit || action == ActionVote || action == ActionComment
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(role)
	default:
		return RoleUser
	}
}
