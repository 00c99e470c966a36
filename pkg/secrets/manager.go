package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

// ProviderType enumerates supported secret backends.
type ProviderType string

const (
	ProviderNone  ProviderType = ""
	ProviderVault ProviderType = "vault"
	ProviderFile  ProviderType = "file"
)

// SecretType classifies a secret for audit logs.
type SecretType string

const (
	SecretReputationAPIKey SecretType = "reputation_api_key"
	SecretJWTSigningKey    SecretType = "jwt_signing_key"
	SecretCustom           SecretType = "custom"
)

var (
	// ErrProviderNotConfigured is returned when no provider is configured.
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	// ErrInvalidReference indicates an invalid or empty reference string.
	ErrInvalidReference = errors.New("secrets: invalid reference")
	// ErrKeyNotFound is returned when the secret has no such entry.
	ErrKeyNotFound = errors.New("secrets: key not found")
)

// Reference points at a secret inside a provider.
//
// The textual form is [provider://][mount::]path[@version][#key].
type Reference struct {
	Name     string
	Provider ProviderType
	Mount    string
	Path     string
	Version  string
	Key      string
	Type     SecretType
}

// CacheKey identifies the fetched payload. The key selector is excluded
// so several keys of one secret share a single fetch.
func (r Reference) CacheKey() string {
	var sb strings.Builder
	sb.WriteString(string(r.Provider))
	sb.WriteString("|")
	sb.WriteString(r.Mount)
	sb.WriteString("|")
	sb.WriteString(r.Path)
	if r.Version != "" {
		sb.WriteString("@")
		sb.WriteString(r.Version)
	}
	return sb.String()
}

// ParseReference converts a raw reference string into a Reference.
func ParseReference(name string, secretType SecretType, raw string) (Reference, error) {
	ref := Reference{Name: name, Type: secretType}

	rest := strings.TrimSpace(raw)
	if rest == "" {
		return ref, ErrInvalidReference
	}

	if before, after, ok := strings.Cut(rest, "://"); ok && before != "" {
		ref.Provider = ProviderType(before)
		rest = after
	}
	if before, after, ok := strings.Cut(rest, "#"); ok {
		ref.Key = strings.TrimSpace(after)
		rest = before
	}
	if before, after, ok := strings.Cut(rest, "@"); ok {
		ref.Version = strings.TrimSpace(after)
		rest = before
	}
	if before, after, ok := strings.Cut(rest, "::"); ok {
		ref.Mount = strings.Trim(strings.TrimSpace(before), "/")
		rest = after
	}

	ref.Path = strings.Trim(strings.TrimSpace(rest), "/")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}
	return ref, nil
}

// Metadata carries provider-specific metadata about a secret.
type Metadata struct {
	Version     string
	UpdatedAt   time.Time
	RetrievedAt time.Time
}

// Secret is a resolved secret payload.
type Secret struct {
	Data     map[string]string
	Metadata Metadata
}

// Value returns a single non-empty entry from the payload.
func (s Secret) Value(key string) (string, bool) {
	val, ok := s.Data[key]
	return val, ok && val != ""
}

// Config is the runtime configuration of a Manager.
type Config struct {
	Provider ProviderType
	CacheTTL time.Duration
	Vault    VaultConfig
	File     FileConfig
}

// ConfigFrom maps application settings onto a manager Config.
func ConfigFrom(cfg config.SecretsConfig) Config {
	return Config{
		Provider: ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider))),
		CacheTTL: cfg.CacheTTL,
		Vault: VaultConfig{
			Address:   cfg.VaultAddress,
			Token:     cfg.VaultToken,
			Namespace: cfg.VaultNamespace,
			MountPath: cfg.VaultMount,
		},
		File: FileConfig{BasePath: cfg.FileBasePath},
	}
}

// Manager resolves secrets from the configured backend with caching.
type Manager interface {
	GetSecret(ctx context.Context, ref Reference) (Secret, error)
	GetString(ctx context.Context, ref Reference) (string, error)
	Close() error
}

type provider interface {
	Name() ProviderType
	Fetch(ctx context.Context, ref Reference) (Secret, error)
	Close() error
}

type manager struct {
	provider provider
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	secret    Secret
	expiresAt time.Time
}

// NewManager creates a Manager for the configured provider.
func NewManager(cfg Config) (Manager, error) {
	var (
		prov provider
		err  error
	)

	switch cfg.Provider {
	case ProviderNone:
		return nil, ErrProviderNotConfigured
	case ProviderVault:
		prov, err = newVaultProvider(cfg.Vault)
	case ProviderFile:
		prov, err = newFileProvider(cfg.File)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return newManager(prov, cfg.CacheTTL), nil
}

func newManager(prov provider, ttl time.Duration) *manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &manager{
		provider: prov,
		cacheTTL: ttl,
		cache:    make(map[string]cachedSecret),
	}
}

func (m *manager) Close() error {
	return m.provider.Close()
}

// GetSecret resolves the full payload for ref.
func (m *manager) GetSecret(ctx context.Context, ref Reference) (Secret, error) {
	if ref.Path == "" {
		return Secret{}, ErrInvalidReference
	}
	if ref.Provider != ProviderNone && ref.Provider != m.provider.Name() {
		return Secret{}, fmt.Errorf("secrets: reference provider %q does not match manager provider %q", ref.Provider, m.provider.Name())
	}

	if secret, ok := m.cached(ref); ok {
		return secret, nil
	}

	fields := []zap.Field{
		zap.String("secret_name", ref.Name),
		zap.String("secret_type", string(ref.Type)),
		zap.String("provider", string(m.provider.Name())),
	}

	secret, err := m.provider.Fetch(ctx, ref)
	if err != nil {
		logger.Warn("secret fetch failed", append(fields, zap.Error(err))...)
		return Secret{}, err
	}
	secret.Metadata.RetrievedAt = time.Now().UTC()

	m.store(ref, secret)
	if secret.Metadata.Version != "" {
		fields = append(fields, zap.String("version", secret.Metadata.Version))
	}
	logger.Info("secret fetched", fields...)

	return secret, nil
}

// GetString returns the entry named by ref.Key.
func (m *manager) GetString(ctx context.Context, ref Reference) (string, error) {
	if ref.Key == "" {
		return "", fmt.Errorf("%w: reference %q names no key", ErrKeyNotFound, ref.Name)
	}

	secret, err := m.GetSecret(ctx, ref)
	if err != nil {
		return "", err
	}
	if value, ok := secret.Value(ref.Key); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref.Key)
}

func (m *manager) cached(ref Reference) (Secret, bool) {
	m.mu.RLock()
	entry, ok := m.cache[ref.CacheKey()]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return Secret{}, false
	}
	return cloneSecret(entry.secret), true
}

func (m *manager) store(ref Reference, secret Secret) {
	m.mu.Lock()
	m.cache[ref.CacheKey()] = cachedSecret{
		secret:    cloneSecret(secret),
		expiresAt: time.Now().Add(m.cacheTTL),
	}
	m.mu.Unlock()
}

func cloneSecret(src Secret) Secret {
	dst := Secret{Data: make(map[string]string, len(src.Data)), Metadata: src.Metadata}
	for k, v := range src.Data {
		dst.Data[k] = v
	}
	return dst
}

// ResolveString fetches a single value named by raw using a one-off manager.
// An empty raw reference resolves to fallback without touching any backend.
func ResolveString(ctx context.Context, cfg config.SecretsConfig, name string, secretType SecretType, raw, fallback string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	ref, err := ParseReference(name, secretType, raw)
	if err != nil {
		return "", fmt.Errorf("parse %s reference: %w", name, err)
	}

	managerCfg := ConfigFrom(cfg)
	if ref.Provider != ProviderNone {
		managerCfg.Provider = ref.Provider
	}

	mgr, err := NewManager(managerCfg)
	if err != nil {
		return "", err
	}
	defer mgr.Close()

	return mgr.GetString(ctx, ref)
}
