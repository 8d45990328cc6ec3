package domain

// Role is the fixed part a participant plays in the broadcast.
type Role string

const (
	RoleHost   Role = "host"
	RoleGuest  Role = "guest"
	RoleViewer Role = "viewer"
)

// KnownRoles lists every accepted role.
var KnownRoles = []Role{RoleHost, RoleGuest, RoleViewer}

func ParseRole(s string) (Role, bool) {
	for _, r := range KnownRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsAuthority reports whether the role owns the shared session state.
func (r Role) IsAuthority() bool { return r == RoleHost }

// HasVideo reports whether the role contributes a camera track.
func (r Role) HasVideo() bool { return r == RoleHost || r == RoleGuest }
