package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/llmflow/pkg/validation"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

// KeyringService is the keyring service every provider secret is filed under
const KeyringService = "llmflow"

// refsAccount holds the JSON list of known references. Keyrings cannot be
// enumerated portably, so the vault keeps its own.
const refsAccount = "__llmflow_refs__"

// ErrCredentialNotFound is returned when a credential reference has no secret
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialVault resolves the credentialRef of a model provider to its
// secret. Workflow files only ever carry the reference.
type CredentialVault interface {
	Store(ref, secret string) error
	Lookup(ref string) (string, error)
	Forget(ref string) error
	Refs() ([]string, error)
}

// KeyringVault is a CredentialVault backed by the OS keyring (Keychain,
// Windows Credential Manager or Secret Service).
type KeyringVault struct {
	logger *zap.Logger
}

// NewKeyringVault creates a vault. A nil logger discards index warnings.
func NewKeyringVault(logger *zap.Logger) *KeyringVault {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyringVault{logger: logger.Named("keyring")}
}

func checkRef(ref string) error {
	if ref == refsAccount || !validation.IsValidIdentifier(ref) {
		return fmt.Errorf("invalid credential reference %q", ref)
	}
	return nil
}

// Store saves secret under ref, replacing any previous value
func (v *KeyringVault) Store(ref, secret string) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	if err := keyring.Set(KeyringService, ref, secret); err != nil {
		return fmt.Errorf("store credential %s: %w", ref, err)
	}

	// a stale index only hides the ref from Refs
	if err := v.updateRefs(func(refs []string) []string {
		if slices.Contains(refs, ref) {
			return refs
		}
		return append(refs, ref)
	}); err != nil {
		v.logger.Warn("credential index not updated", zap.String("ref", ref), zap.Error(err))
	}
	return nil
}

// Lookup returns the secret stored under ref
func (v *KeyringVault) Lookup(ref string) (string, error) {
	if err := checkRef(ref); err != nil {
		return "", err
	}
	secret, err := keyring.Get(KeyringService, ref)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", fmt.Errorf("%s: %w", ref, ErrCredentialNotFound)
	case err != nil:
		return "", fmt.Errorf("lookup credential %s: %w", ref, err)
	}
	return secret, nil
}

// Forget deletes the secret stored under ref
func (v *KeyringVault) Forget(ref string) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	err := keyring.Delete(KeyringService, ref)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("%s: %w", ref, ErrCredentialNotFound)
	case err != nil:
		return fmt.Errorf("forget credential %s: %w", ref, err)
	}

	if err := v.updateRefs(func(refs []string) []string {
		return slices.DeleteFunc(refs, func(r string) bool { return r == ref })
	}); err != nil {
		v.logger.Warn("credential index not updated", zap.String("ref", ref), zap.Error(err))
	}
	return nil
}

// Refs lists stored references in the order they were first stored
func (v *KeyringVault) Refs() ([]string, error) {
	raw, err := keyring.Get(KeyringService, refsAccount)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return []string{}, nil
	case err != nil:
		return nil, fmt.Errorf("read credential index: %w", err)
	}

	var refs []string
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decode credential index: %w", err)
	}
	return refs, nil
}

func (v *KeyringVault) updateRefs(change func([]string) []string) error {
	refs, err := v.Refs()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(change(refs))
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, refsAccount, string(raw))
}

// HasCredential reports whether ref resolves in vault
func HasCredential(vault CredentialVault, ref string) bool {
	if ref == "" || vault == nil {
		return false
	}
	_, err := vault.Lookup(ref)
	return err == nil
}
