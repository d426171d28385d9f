package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names used by earlier deployments of the web app
const (
	legacyGeminiKeyEnv       = "GCP_GEMINI_API_KEY"
	legacyRecaptchaSecretEnv = "RECAPTCHA_SECRET_KEY"
	legacySMTPHostEnv        = "SMTP_HOST"
	legacySMTPPortEnv        = "SMTP_PORT"
	legacySMTPUserEnv        = "SMTP_USER"
	legacySMTPPassEnv        = "SMTP_PASS"
	legacyContactReceiverEnv = "CONTACT_RECEIVER"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyLegacyEnvFallbacks()
	c.applyTLSDefaults()
	c.applyStoreDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("ATSQUICK_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyLegacyEnvFallbacks fills unset values from the legacy variable names
func (c *Config) applyLegacyEnvFallbacks() {
	setIfEmpty(&c.AI.APIKey, os.Getenv(legacyGeminiKeyEnv))
	setIfEmpty(&c.AI.APIKey, os.Getenv("GEMINI_API_KEY"))
	setIfEmpty(&c.Contact.Recaptcha.SecretKey, os.Getenv(legacyRecaptchaSecretEnv))
	setIfEmpty(&c.Contact.SMTP.Host, os.Getenv(legacySMTPHostEnv))
	setIfEmpty(&c.Contact.SMTP.Username, os.Getenv(legacySMTPUserEnv))
	setIfEmpty(&c.Contact.SMTP.Password, os.Getenv(legacySMTPPassEnv))
	setIfEmpty(&c.Contact.Receiver, os.Getenv(legacyContactReceiverEnv))

	if portEnv := os.Getenv(legacySMTPPortEnv); portEnv != "" && os.Getenv("ATSQUICK_CONTACT_SMTP_PORT") == "" {
		if port, err := strconv.Atoi(portEnv); err == nil {
			c.Contact.SMTP.Port = port
		} else {
			log.Printf("[CONFIG] Ignoring invalid %s value: %q", legacySMTPPortEnv, portEnv)
		}
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyStoreDefaults resolves the result store location under the user's home directory
func (c *Config) applyStoreDefaults() {
	if c.Store.Path != "" || c.Store.Backend == "memory" {
		return
	}
	name := "analysis.json"
	if c.Store.Backend == "sqlite" {
		name = "analysis.db"
	}
	c.Store.Path = defaultStorePath(name)
}

// defaultStorePath returns ~/.atsquick/<name>, or ./.atsquick/<name> without a home directory
func defaultStorePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".atsquick", name)
	}
	return filepath.Join(home, ".atsquick", name)
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func setIfEmpty(target *string, value string) {
	if *target == "" && value != "" {
		*target = value
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// isSensitiveEnv reports whether an environment variable value must be masked in logs
func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "pass", "secret", "token"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// trackedEnvVars are echoed in the startup summary when set
var trackedEnvVars = []string{
	"ATSQUICK_AI_APIKEY",
	"ATSQUICK_AI_MODEL",
	"ATSQUICK_SERVER_PORT",
	"ATSQUICK_SERVER_HOST",
	"ATSQUICK_APP_LOGLEVEL",
	"ATSQUICK_APP_ENVIRONMENT",
	"ATSQUICK_STORE_BACKEND",
	"ATSQUICK_VAULT_ENABLED",
	legacyGeminiKeyEnv,
	legacyRecaptchaSecretEnv,
	legacySMTPHostEnv,
	legacySMTPPortEnv,
	legacySMTPUserEnv,
	legacySMTPPassEnv,
	legacyContactReceiverEnv,
}

// summaryLines renders the effective settings with secrets reduced to set/unset
func (c *Config) summaryLines(configFileUsed string) []string {
	if configFileUsed == "" {
		configFileUsed = "none (defaults and environment)"
	}

	var env []string
	for _, name := range trackedEnvVars {
		value := os.Getenv(name)
		switch {
		case value == "":
			continue
		case isSensitiveEnv(name):
			env = append(env, name+"=***MASKED***")
		default:
			env = append(env, name+"="+value)
		}
	}
	if len(env) == 0 {
		env = []string{"none"}
	}

	return []string{
		"config file: " + configFileUsed,
		"environment: " + strings.Join(env, " "),
		fmt.Sprintf("ai: provider=%s model=%s timeout=%s key=%s",
			c.AI.Provider, c.AI.Model, c.AI.Timeout, configuredLabel(c.AI.APIKey)),
		fmt.Sprintf("contact: recaptcha=%s minScore=%.2f smtp=%s:%d smtpPassword=%s",
			configuredLabel(c.Contact.Recaptcha.SecretKey), c.Contact.Recaptcha.MinScore,
			c.Contact.SMTP.Host, c.Contact.SMTP.Port, configuredLabel(c.Contact.SMTP.Password)),
		fmt.Sprintf("server: %s:%s tls=%s", c.Server.Host, c.Server.Port, c.Server.TLS.Mode),
		fmt.Sprintf("app: environment=%s logLevel=%s", c.App.Environment, c.App.LogLevel),
		fmt.Sprintf("store: %s (%s)", c.Store.Backend, c.Store.Path),
		fmt.Sprintf("vault=%t observability=%t", c.Vault.Enabled, c.Observability.Enabled),
	}
}

// logConfigurationSources prints the summary through the standard logger
func (c *Config) logConfigurationSources(configFileUsed string) {
	for _, line := range c.summaryLines(configFileUsed) {
		log.Println("[CONFIG]", line)
	}
}

func configuredLabel(secret string) string {
	if secret != "" {
		return "set"
	}
	return "not set"
}
