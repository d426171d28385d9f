package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"atsquick/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds the KV v2 read paths (for example "secret/data/atsquick/gemini").
// An empty path leaves the matching setting untouched.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`   // field "keys": comma-separated server API keys
	GeminiKey string `mapstructure:"geminiKey"` // field "api_key"
	Recaptcha string `mapstructure:"recaptcha"` // field "secret_key"
	SMTP      string `mapstructure:"smtp"`      // optional fields "host", "username", "password"
}

// VaultClient reads KV v2 secrets
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to the Vault server described by cfg
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	token, err := cfg.resolveToken()
	if err != nil {
		return nil, err
	}

	apiConfig := api.DefaultConfig()
	if cfg.Address != "" {
		apiConfig.Address = cfg.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveToken prefers the inline token and falls back to the token file
func (c VaultConfig) resolveToken() (string, error) {
	token := c.Token
	if token == "" && c.TokenFile != "" {
		raw, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// ReadKV returns the data map of the KV v2 secret at path
func (vc *VaultClient) ReadKV(ctx context.Context, path string) (map[string]any, error) {
	secret, err := vc.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not a KV v2 secret", path)
	}
	return data, nil
}

// kvReader is the part of VaultClient the secret bindings depend on
type kvReader interface {
	ReadKV(ctx context.Context, path string) (map[string]any, error)
}

// secretBinding copies one Vault secret into the config
type secretBinding struct {
	name  string
	path  string
	apply func(cfg *Config, data map[string]any) error
}

func vaultBindings(cfg *Config) []secretBinding {
	paths := cfg.Vault.Secrets
	return []secretBinding{
		{name: "server API keys", path: paths.APIKeys, apply: func(cfg *Config, data map[string]any) error {
			raw, err := requiredString(data, "keys")
			if err != nil {
				return err
			}
			cfg.Server.APIKeys = splitAndTrim(raw)
			return nil
		}},
		{name: "Gemini API key", path: paths.GeminiKey, apply: func(cfg *Config, data map[string]any) error {
			key, err := requiredString(data, "api_key")
			cfg.AI.APIKey = key
			return err
		}},
		{name: "reCAPTCHA secret", path: paths.Recaptcha, apply: func(cfg *Config, data map[string]any) error {
			secret, err := requiredString(data, "secret_key")
			cfg.Contact.Recaptcha.SecretKey = secret
			return err
		}},
		{name: "SMTP credentials", path: paths.SMTP, apply: func(cfg *Config, data map[string]any) error {
			overrideString(data, "host", &cfg.Contact.SMTP.Host)
			overrideString(data, "username", &cfg.Contact.SMTP.Username)
			overrideString(data, "password", &cfg.Contact.SMTP.Password)
			return nil
		}},
	}
}

// ApplyVaultSecrets overwrites the configured secrets with values read from
// Vault. It does nothing when Vault is disabled.
func ApplyVaultSecrets(ctx context.Context, cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(ctx, client, cfg, logger)
}

func applySecrets(ctx context.Context, reader kvReader, cfg *Config, logger *errors.Logger) error {
	applied := 0
	for _, binding := range vaultBindings(cfg) {
		if binding.path == "" {
			continue
		}

		data, err := reader.ReadKV(ctx, binding.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", binding.name, err)
		}

		// Apply to a copy so a malformed secret leaves the config as it was
		updated := *cfg
		if err := binding.apply(&updated, data); err != nil {
			return fmt.Errorf("failed to load %s from vault: %s: %w", binding.name, binding.path, err)
		}
		*cfg = updated
		applied++

		if logger != nil {
			logger.Debug("Secret loaded from Vault", "secret", binding.name, "path", binding.path)
		}
	}

	if logger != nil {
		logger.Info("Applied secrets from Vault", "count", applied)
	}
	return nil
}

func requiredString(data map[string]any, key string) (string, error) {
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found", key)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("value for key '%s' is empty", key)
	}
	return s, nil
}

// overrideString sets *target when data holds a non-empty string under key
func overrideString(data map[string]any, key string, target *string) {
	if s, ok := data[key].(string); ok && s != "" {
		*target = s
	}
}
