package model

type Role string

const (
	RoleUser   Role = "user"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDriver, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who performs an operation. It is passed explicitly into every
// mutating service call.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// SystemActor is used by sweeps and webhook reconciliation.
func SystemActor(component string) Actor {
	return Actor{ID: "system:" + component, Role: RoleSystem}
}
