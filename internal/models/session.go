package models

import "time"

// Session is the authenticated caller of a request. It is built by the auth
// middleware from the bearer token and passed explicitly to services.
type Session struct {
	UserID    uint
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

func (s *Session) IsTutor() bool {
	return s != nil && s.Role == RoleTutor
}

func (s *Session) IsStudent() bool {
	return s != nil && s.Role == RoleStudent
}
