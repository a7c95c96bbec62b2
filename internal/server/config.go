// config.go - Startup configuration validation.
//
// Validates environment variables at startup to fail fast with clear
// error messages rather than runtime failures.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator collects validation errors for startup configuration.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidateRequired validates that a required environment variable is set.
func (v *ConfigValidator) ValidateRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		v.AddError(key, "required environment variable not set")
	}
	return value
}

// ValidatePort validates that a value is a valid listen address port.
func (v *ConfigValidator) ValidatePort(key, value string) {
	if value == "" {
		return
	}

	portStr := strings.TrimPrefix(value, ":")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateMinLength validates minimum string length.
func (v *ConfigValidator) ValidateMinLength(key, value string, minLen int) {
	if value == "" {
		return
	}
	if len(value) < minLen {
		v.AddError(key, fmt.Sprintf("must be at least %d characters long (got %d)", minLen, len(value)))
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}
	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateStartupConfig performs validation of all environment
// configuration the binary reads.
func ValidateStartupConfig() error {
	v := NewConfigValidator()

	v.ValidateRequired("DATABASE_URL")
	tokenSecret := v.ValidateRequired("FBX_TOKEN_SECRET")

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://") {
			v.AddError("DATABASE_URL", "must be a valid PostgreSQL connection string")
		}
	}

	v.ValidateMinLength("FBX_TOKEN_SECRET", tokenSecret, 32)

	if addr := os.Getenv("FBX_ADDR"); addr != "" {
		v.ValidatePort("FBX_ADDR", addr)
	}

	v.ValidateEnum("FBX_STORAGE_BACKEND", getenvDefault("FBX_STORAGE_BACKEND", "disk"), []string{"disk", "s3"})
	v.ValidateEnum("FBX_TYPE_DETECTION", getenvDefault("FBX_TYPE_DETECTION", "sniff"), []string{"sniff", "extension"})

	if os.Getenv("FBX_STORAGE_BACKEND") == "s3" {
		v.ValidateRequired("FBX_S3_ENDPOINT")
		v.ValidateRequired("FBX_S3_ACCESS_KEY")
		v.ValidateRequired("FBX_S3_SECRET_KEY")
		v.ValidateRequired("FBX_S3_BUCKET")
	}

	if maxUpload := os.Getenv("FBX_MAX_UPLOAD_BYTES"); maxUpload != "" {
		v.ValidatePositiveInt("FBX_MAX_UPLOAD_BYTES", maxUpload)
	}

	v.ValidateEnum("FBX_LOG_FORMAT", getenvDefault("FBX_LOG_FORMAT", "text"), []string{"json", "text"})
	v.ValidateEnum("FBX_LOG_LEVEL", getenvDefault("FBX_LOG_LEVEL", "info"), []string{"debug", "info", "warn", "error"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}

// getenvDefault reads an environment variable and returns a default value
// if not set.
func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
