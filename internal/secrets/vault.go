// Package secrets holds credentials that can be rotated without a restart.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
)

// Loader retrieves secrets from a source such as the environment or a .env file.
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Getter returns a func reading key on every call, for consumers that must
// see rotated values.
func (v *Vault) Getter(key string) func() string {
	return func() string { return v.Get(key) }
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}

// Redacted returns the first two characters of the secret followed by ****.
// Secrets of four characters or fewer are fully masked.
func (v *Vault) Redacted(key string) string {
	return redact(v.Get(key))
}

// ReloadOn reloads the vault whenever one of sigs arrives, until ctx is done.
func (v *Vault) ReloadOn(ctx context.Context, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				if err := v.Reload(); err != nil {
					slog.Error("secret reload failed", "error", err)
					continue
				}
				slog.Info("secrets reloaded")
			}
		}
	}()
}

func redact(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", 4)
	}
}
