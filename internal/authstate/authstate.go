// Package authstate defines the normalized snapshot of authentication,
// registration, and role status that drives every navigation decision.
package authstate

// Role is the marketplace role selected by a registered user.
type Role string

const (
	RoleNone       Role = ""
	RolePatient    Role = "patient"
	RoleResearcher Role = "researcher"
	RoleProvider   Role = "provider"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleResearcher, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// ErrorKind classifies the degradation carried by an AuthState. Empty means
// the state was produced by a clean verification.
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	ErrorTimeout         ErrorKind = "verification_timeout"
	ErrorFailed          ErrorKind = "verification_failed"
	ErrorLoopDetected    ErrorKind = "loop_detected"
	ErrorTooManyAttempts ErrorKind = "too_many_attempts"
	ErrorWatchdog        ErrorKind = "watchdog_forced"
	ErrorStorageRead     ErrorKind = "storage_read"
)

// AuthState is a value object recomputed on each verification. It is owned by
// the identity verifier; every other component reads it.
//
// When IsAuthenticated is false, Role and WalletAddress are advisory only and
// must not be trusted for access decisions.
type AuthState struct {
	IsAuthenticated        bool
	IsNewUser              bool
	IsRegistrationComplete bool
	Role                   Role
	WalletAddress          string
	Error                  ErrorKind
}

// HasRole reports whether the state carries a trusted role. Advisory roles on
// unauthenticated states never count.
func (s AuthState) HasRole() bool {
	return s.IsAuthenticated && s.Role.Valid()
}

// Degraded builds the fail-safe state used when verification could not
// complete: unauthenticated, carrying only the error kind.
func Degraded(kind ErrorKind) AuthState {
	return AuthState{Error: kind}
}

// Optimistic builds the first-paint state seeded from a restored session. It
// is marked authenticated so the UI can render, but the verifier's result
// always overrides it.
func Optimistic(walletAddress string, role Role) AuthState {
	return AuthState{
		IsAuthenticated:        true,
		IsRegistrationComplete: true,
		Role:                   role,
		WalletAddress:          walletAddress,
	}
}
