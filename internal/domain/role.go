package domain

// Role identifies the category of actor performing a transition. Roles are
// supplied by the external auth collaborator; this service only authorizes
// against them.
type Role string

const (
	RoleOperator Role = "OPERATOR"
	RoleAdmin    Role = "ADMIN"
	RoleSystem   Role = "SYSTEM"
)
