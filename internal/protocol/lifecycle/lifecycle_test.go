package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ciphercomms/internal/domain"
	"ciphercomms/internal/protocol/lifecycle"
)

var (
	keyA = domain.ExportedPublicKey{Kty: "RSA", N: "modulus-a", E: "AQAB"}
	keyB = domain.ExportedPublicKey{Kty: "RSA", N: "modulus-b", E: "AQAB"}
)

func TestPlan_Table(t *testing.T) {
	aWithOps := keyA
	aWithOps.KeyOps = []string{"encrypt"}

	cases := []struct {
		name string
		obs  lifecycle.Observation
		want lifecycle.Step
	}{
		{
			name: "synced",
			obs:  lifecycle.Observation{LocalPublic: &keyA, Directory: &aWithOps},
			want: lifecycle.Step{State: domain.KeyStateSynced, Action: lifecycle.ActionNone, Next: domain.KeyStateSynced},
		},
		{
			name: "drifted: directory differs",
			obs:  lifecycle.Observation{LocalPublic: &keyA, Directory: &keyB},
			want: lifecycle.Step{State: domain.KeyStateDrifted, Action: lifecycle.ActionPublish, Next: domain.KeyStateSynced},
		},
		{
			name: "drifted: directory missing",
			obs:  lifecycle.Observation{LocalPublic: &keyA},
			want: lifecycle.Step{State: domain.KeyStateDrifted, Action: lifecycle.ActionPublish, Next: domain.KeyStateSynced},
		},
		{
			name: "orphaned",
			obs:  lifecycle.Observation{Directory: &keyB},
			want: lifecycle.Step{State: domain.KeyStateOrphaned, Action: lifecycle.ActionAdoptDirectory, Next: domain.KeyStateOrphaned},
		},
		{
			name: "fresh",
			obs:  lifecycle.Observation{},
			want: lifecycle.Step{State: domain.KeyStateFresh, Action: lifecycle.ActionGenerate, Next: domain.KeyStateSynced},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, lifecycle.Plan(tc.obs))
		})
	}
}

func TestPlan_OrphanedNeverGenerates(t *testing.T) {
	step := lifecycle.Plan(lifecycle.Observation{Directory: &keyA})
	require.NotEqual(t, lifecycle.ActionGenerate, step.Action)
	require.Equal(t, lifecycle.CapabilityEncryptOnly, lifecycle.CapabilityOf(step.Next))
}

func TestPlan_SecondRunIsNoop(t *testing.T) {
	// After a fresh or drifted run the directory holds the local key.
	for _, first := range []lifecycle.Observation{{}, {LocalPublic: &keyA, Directory: &keyB}} {
		step := lifecycle.Plan(first)
		require.Equal(t, domain.KeyStateSynced, step.Next)

		again := lifecycle.Plan(lifecycle.Observation{LocalPublic: &keyA, Directory: &keyA})
		require.Equal(t, lifecycle.ActionNone, again.Action)
	}
}

func TestCapability(t *testing.T) {
	require.Equal(t, lifecycle.CapabilityEncryptDecrypt, lifecycle.CapabilityOf(domain.KeyStateSynced))
	require.Equal(t, lifecycle.CapabilityEncryptDecrypt, lifecycle.CapabilityOf(domain.KeyStateDrifted))
	require.Equal(t, lifecycle.CapabilityEncryptDecrypt, lifecycle.CapabilityOf(domain.KeyStateFresh))
	require.Equal(t, lifecycle.CapabilityEncryptOnly, lifecycle.CapabilityOf(domain.KeyStateOrphaned))
	require.Equal(t, "generate", lifecycle.ActionGenerate.String())
}
