package keys

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/rs/zerolog"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
	"ciphercomms/internal/protocol/lifecycle"
)

// Service runs key reconciliation for users of this device.
//
// There is no cross-device coordination: two devices publishing at the same
// time race and the later directory write wins. The loser becomes Drifted on
// its next run and republishes.
type Service struct {
	local     domain.LocalKeyStore
	directory domain.DirectoryService
	generate  crypto.KeyGenerator
	log       zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithKeyGenerator replaces the RSA key generator.
func WithKeyGenerator(gen crypto.KeyGenerator) Option {
	return func(s *Service) { s.generate = gen }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a Service over the given local key store and directory.
func New(local domain.LocalKeyStore, directory domain.DirectoryService, opts ...Option) *Service {
	s := &Service{
		local:     local,
		directory: directory,
		generate:  crypto.GenerateRSAKey,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile brings user's keys in line with the directory and returns the
// resulting ring.
func (s *Service) Reconcile(ctx context.Context, user domain.UserID) (domain.KeyRing, error) {
	log := s.log.With().Str("user_id", user.String()).Logger()

	priv, localPub, err := s.loadLocal(user)
	if err != nil {
		return domain.KeyRing{}, err
	}
	obs := lifecycle.Observation{LocalPublic: localPub}
	if dirPub, ok, err := s.directory.PublicKey(ctx, user); err != nil {
		return domain.KeyRing{}, fmt.Errorf("read directory key for %s: %w", user, err)
	} else if ok {
		obs.Directory = &dirPub
	}

	step := lifecycle.Plan(obs)
	log.Debug().
		Str("key_state", string(step.State)).
		Stringer("action", step.Action).
		Msg("Reconciling keys")

	switch step.Action {
	case lifecycle.ActionNone:
		return domain.NewKeyRing(user, step.Next, *localPub, priv), nil

	case lifecycle.ActionPublish:
		if err := s.publish(ctx, user, *localPub); err != nil {
			return domain.KeyRing{}, err
		}
		log.Info().Str("key_state", string(step.State)).Msg("Published local public key")
		return domain.NewKeyRing(user, step.Next, *localPub, priv), nil

	case lifecycle.ActionAdoptDirectory:
		log.Warn().Msg("No private key on this device; messages can be sent but not read")
		return domain.NewKeyRing(user, step.Next, *obs.Directory, nil), nil

	case lifecycle.ActionGenerate:
		kp, err := crypto.GenerateKeyPair(s.generate)
		if err != nil {
			log.Error().Err(err).Msg("Key generation failed")
			return domain.KeyRing{}, err
		}
		if err := s.local.PutKey(user, domain.KeyKindPrivate, domain.KeyHandle{Key: kp.Private}); err != nil {
			return domain.KeyRing{}, fmt.Errorf("store private key for %s: %w", user, err)
		}
		if err := s.publish(ctx, user, kp.Public); err != nil {
			return domain.KeyRing{}, err
		}
		log.Info().Msg("Generated and published a new key pair")
		return domain.NewKeyRing(user, step.Next, kp.Public, kp.Private), nil
	}
	return domain.KeyRing{}, fmt.Errorf("unhandled key action %s", step.Action)
}

// ClearLocalKeys deletes both local key kinds for user. The directory is
// left untouched, so the next Reconcile lands in Orphaned.
func (s *Service) ClearLocalKeys(user domain.UserID) error {
	for _, kind := range []domain.KeyKind{domain.KeyKindPrivate, domain.KeyKindPublic} {
		if err := s.local.DeleteKey(user, kind); err != nil {
			return fmt.Errorf("delete %s key for %s: %w", kind, user, err)
		}
	}
	s.log.Info().Str("user_id", user.String()).Msg("Cleared local keys")
	return nil
}

// Watch reconciles now and again every time user's directory record
// changes, delivering each resulting ring. The channel closes when ctx ends
// or a reconciliation fails; the error is then available from the returned func.
func (s *Service) Watch(ctx context.Context, user domain.UserID) (<-chan domain.KeyRing, func() error, error) {
	updates, unsub, err := s.directory.WatchUser(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan domain.KeyRing, 1)
	var watchErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		defer unsub()
		var last *domain.KeyRing
		for range updates {
			ring, err := s.Reconcile(ctx, user)
			if err != nil {
				watchErr = err
				return
			}
			if last != nil && last.State == ring.State && last.PublicKey.Equal(ring.PublicKey) {
				continue
			}
			last = &ring
			select {
			case out <- ring:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() error { <-done; return watchErr }, nil
}

// loadLocal returns the local private key and its derived public export,
// both nil when none is stored. A cached public export that disagrees with
// the private key is rewritten.
func (s *Service) loadLocal(user domain.UserID) (*rsa.PrivateKey, *domain.ExportedPublicKey, error) {
	m, ok, err := s.local.GetKey(user, domain.KeyKindPrivate)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key for %s: %w", user, err)
	}
	if !ok {
		return nil, nil, nil
	}
	priv, err := crypto.PrivateKeyFromMaterial(m)
	if err != nil {
		return nil, nil, fmt.Errorf("decode private key for %s: %w", user, err)
	}
	pub, err := crypto.ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	cached, ok, err := s.local.GetKey(user, domain.KeyKindPublic)
	if err != nil {
		return nil, nil, fmt.Errorf("read public key for %s: %w", user, err)
	}
	if ok {
		if cachedPub, err := crypto.PublicKeyFromMaterial(cached); err == nil && cachedPub.Equal(pub) {
			return priv, &pub, nil
		}
	}
	if err := s.cachePublic(user, pub); err != nil {
		return nil, nil, err
	}
	return priv, &pub, nil
}

// publish writes pub to the directory, then caches it locally.
func (s *Service) publish(ctx context.Context, user domain.UserID, pub domain.ExportedPublicKey) error {
	if err := s.directory.SetPublicKey(ctx, user, pub); err != nil {
		return fmt.Errorf("publish key for %s: %w", user, err)
	}
	return s.cachePublic(user, pub)
}

func (s *Service) cachePublic(user domain.UserID, pub domain.ExportedPublicKey) error {
	raw, err := crypto.PublicKeyMaterial(pub)
	if err != nil {
		return err
	}
	if err := s.local.PutKey(user, domain.KeyKindPublic, raw); err != nil {
		return fmt.Errorf("cache public key for %s: %w", user, err)
	}
	return nil
}

// Fingerprint returns the fingerprint of ring's public key.
func Fingerprint(ring domain.KeyRing) (domain.Fingerprint, error) {
	if ring.PublicKey.IsZero() {
		return "", fmt.Errorf("%w: ring has no public key", cerrors.ErrInvalidPublicKey)
	}
	return crypto.Fingerprint(ring.PublicKey)
}

// Compile-time assertion that Service implements domain.KeyLifecycleService.
var _ domain.KeyLifecycleService = (*Service)(nil)
