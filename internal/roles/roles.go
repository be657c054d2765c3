package roles

// Role is the single role a principal acts under. Every principal resolves
// to exactly one role.
type Role string

const (
	// Administrator manages accounts and has full access to the catalog
	// and workflows.
	Administrator Role = "administrator"
	// Manager manages equipment, assignments and request approvals.
	Manager Role = "manager"
	// Requester can request equipment and see what is assigned to them.
	Requester Role = "requester"
)

// Resolve classifies a principal from its two capability flags. The
// superuser flag wins over the elevated flag, so a superuser without the
// elevated flag is still an Administrator.
func Resolve(elevated, superuser bool) Role {
	switch {
	case superuser:
		return Administrator
	case elevated:
		return Manager
	default:
		return Requester
	}
}

// IsStaff reports whether the role may manage equipment, approve requests
// and accept returns.
func IsStaff(r Role) bool {
	return r == Administrator || r == Manager
}
