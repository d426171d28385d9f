package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.2) // Low temperature for consistent scoring
	v.SetDefault("ai.customPrompts.analyzeResume", "")
	v.SetDefault("ai.customPrompts.analyzeResumeFile", "")
	v.SetDefault("ai.customPrompts.watch", false)
	v.SetDefault("ai.customPrompts.debounceDelay", time.Second)

	// Circuit Breaker Configuration
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second) // Must exceed ai.timeout
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown", "yaml", "pdf"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB
	v.SetDefault("app.validatePdf", true)

	// Contact Configuration
	v.SetDefault("contact.receiver", "")
	v.SetDefault("contact.recaptcha.secretKey", "")
	v.SetDefault("contact.recaptcha.verifyUrl", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("contact.recaptcha.minScore", 0.5)
	v.SetDefault("contact.recaptcha.timeout", 10*time.Second)
	v.SetDefault("contact.smtp.host", "")
	v.SetDefault("contact.smtp.port", 587)
	v.SetDefault("contact.smtp.username", "")
	v.SetDefault("contact.smtp.password", "")
	v.SetDefault("contact.smtp.fromName", "ATSQuick Contact")
	v.SetDefault("contact.smtp.tlsPolicy", "opportunistic")
	v.SetDefault("contact.smtp.timeout", 15*time.Second)

	// Client Configuration
	v.SetDefault("client.baseUrl", "http://localhost:8080")
	v.SetDefault("client.apiKey", "")
	v.SetDefault("client.timeout", 90*time.Second)

	// Result Store Configuration
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "") // Resolved to ~/.atsquick/analysis.json or analysis.db

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.recaptcha", "")
	v.SetDefault("vault.secrets.smtp", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "atsquick")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContact", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	// Console Configuration
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health Check Configuration
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
