package auth

// Roles recognised by the API. Owners act for a business; clients book for
// themselves.
const (
	RoleClient = "client"
	RoleOwner  = "owner"
)

// Session is the authenticated caller for a single request. It is passed
// explicitly into every operation; nothing reads ambient process-wide user
// state.
type Session struct {
	UserID     string
	BusinessID string
	Role       string
}

func SessionFromClaims(c *Claims) Session {
	return Session{
		UserID:     c.Sub,
		BusinessID: c.BusinessID,
		Role:       c.Role,
	}
}

func (s Session) IsOwner() bool { return s.Role == RoleOwner }
