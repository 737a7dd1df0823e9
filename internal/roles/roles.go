// Package roles defines the principal roles known to the back office.
// Both the notification feed and the agent directory scope their data by
// these values, so they live in one shared package.
package roles

// Role identifies a back-office principal category.
type Role string

const (
	Agent     Role = "agent"
	Assistant Role = "assistant"
	Admin     Role = "admin"

	// All is the wildcard target: a notification addressed to All is
	// visible in every role's feed. It is never a registrable agent role.
	All Role = "all"
)

// Valid reports whether r is a concrete, registrable role.
func Valid(r Role) bool {
	switch r {
	case Agent, Assistant, Admin:
		return true
	}
	return false
}

// ValidTarget reports whether r may be used as a notification target.
func ValidTarget(r Role) bool {
	return r == All || Valid(r)
}
