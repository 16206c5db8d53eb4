package models

type UserRole string

const (
	RolePlayer  UserRole = "player"
	RoleArbiter UserRole = "arbiter"
	RoleAdmin   UserRole = "admin"
)

// Actor - аутентифицированный вызывающий. Профили пользователей живут во внешнем сервисе,
// сюда попадает только то, что пришло в JWT.
type Actor struct {
	UserID int64    `json:"user_id"`
	Role   UserRole `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) CanArbitrate() bool {
	return a.Role == RoleArbiter || a.Role == RoleAdmin
}
