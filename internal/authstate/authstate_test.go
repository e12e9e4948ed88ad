package authstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RolePatient.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, RoleNone.Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestHasRoleIgnoresAdvisoryRole(t *testing.T) {
	// An unauthenticated state may still carry a role from a stale store;
	// it must never count for access decisions.
	s := AuthState{IsAuthenticated: false, Role: RoleResearcher}
	assert.False(t, s.HasRole())

	s.IsAuthenticated = true
	assert.True(t, s.HasRole())
}

func TestDegraded(t *testing.T) {
	s := Degraded(ErrorTimeout)
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, ErrorTimeout, s.Error)
}
