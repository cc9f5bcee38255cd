// Package secrets resolves credentials from pluggable backends. The config
// file never holds keys directly in shared deployments; it names a backend
// and the manager fetches from it, falling back to environment variables.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Well-known secret keys.
const (
	KeyLLMAPIKey        = "llm_api_key"
	KeyEmbedAPIKey      = "embed_api_key"
	KeyWebhookSecret    = "webhook_secret"
	KeyGmailAccessToken = "gmail_access_token"
)

// Provider is a secret backend.
type Provider interface {
	// Get retrieves a secret by key. A missing key is an error.
	Get(ctx context.Context, key string) (string, error)
	// Name returns the provider name.
	Name() string
}

// Config selects and configures the backend.
type Config struct {
	// Provider is "env", "file", or "vault". Empty means env.
	Provider string
	// Path is the JSON secrets file for the file backend.
	Path string
	// EnvPrefix for environment variable names (default: "LAUNCHPAD_").
	EnvPrefix string

	Vault *VaultConfig
}

// Manager resolves secrets from a primary backend with env fallback.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager creates a secrets manager.
func NewManager(cfg Config) (*Manager, error) {
	var primary Provider
	var err error

	switch cfg.Provider {
	case "", "env":
		primary = NewEnvProvider(cfg.EnvPrefix)
	case "file":
		primary, err = NewFileProvider(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("file secrets: %w", err)
		}
	case "vault":
		primary, err = NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("vault secrets: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}

	return &Manager{
		primary:  primary,
		fallback: NewEnvProvider(cfg.EnvPrefix),
		cache:    make(map[string]string),
	}, nil
}

// Get retrieves a secret, trying the primary backend then the environment.
// Resolved values are cached for the life of the manager.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if val, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return val, nil
	}
	m.mu.RUnlock()

	val, err := m.primary.Get(ctx, key)
	if err != nil || val == "" {
		val, err = m.fallback.Get(ctx, key)
	}
	if err != nil || val == "" {
		return "", fmt.Errorf("secret not found: %s", key)
	}

	m.mu.Lock()
	m.cache[key] = val
	m.mu.Unlock()
	return val, nil
}

// GetOrDefault retrieves a secret or returns a default value.
func (m *Manager) GetOrDefault(ctx context.Context, key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "LAUNCHPAD_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("env var not found: %s", envKey)
}
