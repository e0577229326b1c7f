package lifecycle

import "ciphercomms/internal/domain"

// Action is the side effect a transition asks the caller to perform.
type Action int

const (
	// ActionNone leaves local and directory state untouched.
	ActionNone Action = iota
	// ActionPublish writes the local public key to the directory.
	ActionPublish
	// ActionAdoptDirectory uses the directory key for encryption only.
	ActionAdoptDirectory
	// ActionGenerate creates a pair, stores the private half locally and publishes the public half.
	ActionGenerate
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionPublish:
		return "publish"
	case ActionAdoptDirectory:
		return "adopt"
	case ActionGenerate:
		return "generate"
	default:
		return "unknown"
	}
}

// Capability is what the device can do with its keys in a given state.
type Capability int

const (
	CapabilityEncryptDecrypt Capability = iota
	CapabilityEncryptOnly
)

// Observation is what reconciliation read before deciding.
type Observation struct {
	// LocalPublic is the public half derived from the local private key;
	// nil when this device holds no private key.
	LocalPublic *domain.ExportedPublicKey
	// Directory is the published key; nil when none is recorded.
	Directory *domain.ExportedPublicKey
}

// Step is one transition: the state observed, what to do, and where it lands.
type Step struct {
	State  domain.KeyState
	Action Action
	Next   domain.KeyState
}

// Classify maps an observation to its state.
func Classify(obs Observation) domain.KeyState {
	switch {
	case obs.LocalPublic != nil && obs.Directory != nil && obs.LocalPublic.Equal(*obs.Directory):
		return domain.KeyStateSynced
	case obs.LocalPublic != nil:
		return domain.KeyStateDrifted
	case obs.Directory != nil:
		return domain.KeyStateOrphaned
	default:
		return domain.KeyStateFresh
	}
}

// Plan classifies obs and applies the matching transition.
func Plan(obs Observation) Step {
	switch Classify(obs) {
	case domain.KeyStateSynced:
		return FromSynced(obs)
	case domain.KeyStateDrifted:
		return FromDrifted(obs)
	case domain.KeyStateOrphaned:
		return FromOrphaned(obs)
	default:
		return FromFresh(obs)
	}
}

// FromSynced is a no-op.
func FromSynced(Observation) Step {
	return Step{State: domain.KeyStateSynced, Action: ActionNone, Next: domain.KeyStateSynced}
}

// FromDrifted publishes the local key; this device is authoritative.
func FromDrifted(Observation) Step {
	return Step{State: domain.KeyStateDrifted, Action: ActionPublish, Next: domain.KeyStateSynced}
}

// FromOrphaned adopts the directory key and stays orphaned.
func FromOrphaned(Observation) Step {
	return Step{State: domain.KeyStateOrphaned, Action: ActionAdoptDirectory, Next: domain.KeyStateOrphaned}
}

// FromFresh generates and publishes a new pair.
func FromFresh(Observation) Step {
	return Step{State: domain.KeyStateFresh, Action: ActionGenerate, Next: domain.KeyStateSynced}
}

// CapabilityOf reports what a device in state can do.
func CapabilityOf(state domain.KeyState) Capability {
	if state == domain.KeyStateOrphaned {
		return CapabilityEncryptOnly
	}
	return CapabilityEncryptDecrypt
}
