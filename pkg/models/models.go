// Package models describes the language-model providers a workflow can
// reference. The editor only ever reads these; the CLI manages them.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrProviderNotFound is returned when no provider matches a lookup
var ErrProviderNotFound = errors.New("provider not found")

// Provider is one selectable model. CredentialRef names the keyring entry
// holding the API key; the key itself is never stored here.
type Provider struct {
	ProviderName  string `yaml:"provider" json:"provider"`
	Model         string `yaml:"model" json:"model"`
	CredentialRef string `yaml:"credential_ref,omitempty" json:"credentialRef,omitempty"`
}

// ID returns the "provider/model" form used as a unique key
func (p Provider) ID() string {
	return p.ProviderName + "/" + p.Model
}

// String returns the display label used in the model dropdown
func (p Provider) String() string {
	if p.ProviderName == "" {
		return p.Model
	}
	return fmt.Sprintf("%s (%s)", p.Model, p.ProviderName)
}

// Validate checks the fields required to register a provider
func (p Provider) Validate() error {
	if strings.TrimSpace(p.ProviderName) == "" {
		return errors.New("provider name cannot be empty")
	}
	if strings.TrimSpace(p.Model) == "" {
		return errors.New("model cannot be empty")
	}
	if strings.ContainsAny(p.ProviderName, "/") {
		return fmt.Errorf("provider name %q cannot contain '/'", p.ProviderName)
	}
	return nil
}

// Lister supplies the ordered provider list
type Lister interface {
	ListProviders(ctx context.Context) ([]Provider, error)
}

// StaticList is a fixed provider list
type StaticList []Provider

// ListProviders returns a copy of the list
func (l StaticList) ListProviders(ctx context.Context) ([]Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Provider, len(l))
	copy(out, l)
	return out, nil
}

// Chain concatenates the lists of several Listers in order, dropping
// providers whose ID was already seen.
type Chain []Lister

// ListProviders queries every lister in order
func (c Chain) ListProviders(ctx context.Context) ([]Provider, error) {
	var out []Provider
	seen := make(map[string]bool)
	for _, l := range c {
		providers, err := l.ListProviders(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range providers {
			if seen[p.ID()] {
				continue
			}
			seen[p.ID()] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// ModelNames returns the model identifiers in list order
func ModelNames(providers []Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Model
	}
	return names
}

// Contains reports whether any provider offers model
func Contains(providers []Provider, model string) bool {
	for _, p := range providers {
		if p.Model == model {
			return true
		}
	}
	return false
}
