// internal/models/caller.go
package models

// Role is a platform role. Only the values below are recognised by the access gate.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleFarmer   Role = "farmer"
	RoleProvider Role = "provider"
	RoleLabour   Role = "labour"
	RoleAdmin    Role = "admin"
)

// KnownRoles lists the recognised roles.
var KnownRoles = []Role{RoleGuest, RoleFarmer, RoleProvider, RoleLabour, RoleAdmin}

// IsKnown reports whether r is one of KnownRoles.
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// CallerContext is supplied by the host per request and never persisted.
type CallerContext struct {
	UserID          string   `json:"userId,omitempty"`
	Roles           []Role   `json:"roles,omitempty"`
	ActiveRole      Role     `json:"activeRole"`
	IsAuthenticated bool     `json:"isAuthenticated"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

// AnonymousCaller is used when the host supplies no caller context.
func AnonymousCaller() CallerContext {
	return CallerContext{ActiveRole: RoleGuest, Roles: []Role{RoleGuest}}
}

func (c CallerContext) IsAdmin() bool {
	return c.ActiveRole == RoleAdmin
}

// HasCoordinates is true only for a complete, in-range coordinate pair.
func (c CallerContext) HasCoordinates() bool {
	if c.Latitude == nil || c.Longitude == nil {
		return false
	}
	lat, lon := *c.Latitude, *c.Longitude
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
