package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMembership covers the basic admin and big admin predicates.
func TestMembership(t *testing.T) {
	p := New([]string{"10", "11"}, []string{"20"})

	require.True(t, p.IsAdmin("10"))
	require.True(t, p.IsAdmin("11"))
	require.False(t, p.IsAdmin("99"))

	require.True(t, p.IsBigAdmin("20"))
	require.False(t, p.IsBigAdmin("10"))

	// Big admins are implicitly admins.
	require.True(t, p.IsAdmin("20"))
}

// TestDerivedPredicates covers the permission helpers layered on membership.
func TestDerivedPredicates(t *testing.T) {
	p := New([]string{"10"}, []string{"20"})

	require.True(t, p.CanCertify("10"))
	require.True(t, p.CanCertify("20"))
	require.False(t, p.CanCertify("99"))

	require.True(t, p.CanForceValidate("20"))
	require.False(t, p.CanForceValidate("10"))

	require.True(t, p.IsSelfTag("10", "10"))
	require.False(t, p.IsSelfTag("10", "20"))
}

// TestEmptyPolicy verifies an empty policy denies everything.
func TestEmptyPolicy(t *testing.T) {
	p := New(nil, nil)

	require.False(t, p.IsAdmin("10"))
	require.False(t, p.IsBigAdmin("10"))
	require.False(t, p.CanCertify("10"))
	require.False(t, p.CanForceValidate("10"))
}
