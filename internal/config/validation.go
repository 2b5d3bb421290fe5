package config

import (
	"fmt"
	"strings"

	"grablock/internal/auth"
	"grablock/internal/background"
	"grablock/internal/cursor"
	"grablock/internal/feedback"
	"grablock/internal/logging"
	"grablock/internal/module"
	"grablock/internal/security"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig checks every section and reports all problems at once.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateModules(&c.Modules)...)
	errs = append(errs, validateLock(&c.Lock)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type lookupFunc func(spec string) error

func lookupIn[T any](r *module.Registry[T]) lookupFunc {
	return func(spec string) error {
		_, err := r.Lookup(spec)
		return err
	}
}

func validateModules(m *ModulesConfig) ValidationErrors {
	var errs ValidationErrors

	fields := []struct {
		field  string
		spec   string
		lookup lookupFunc
	}{
		{"modules.auth", m.Auth, lookupIn(auth.Registry())},
		{"modules.background", m.Background, lookupIn(background.Registry())},
		{"modules.cursor", m.Cursor, lookupIn(cursor.Registry())},
		{"modules.input", m.Input, lookupIn(feedback.Registry())},
	}

	for _, f := range fields {
		// Module arguments are checked when the module initializes; only
		// the name can be resolved here.
		if module.IsList(f.spec) || strings.HasSuffix(f.spec, ":"+module.ListArg) {
			errs = append(errs, ValidationError{
				Field:   f.field,
				Message: "\"list\" is only valid on the command line",
			})
			continue
		}
		if err := f.lookup(f.spec); err != nil {
			errs = append(errs, ValidationError{
				Field:   f.field,
				Message: security.RedactModuleArgs(err.Error()),
			})
		}
	}
	return errs
}

func validateLock(l *LockConfig) ValidationErrors {
	var errs ValidationErrors

	if l.IdleTimeoutMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.idle_timeout_ms",
			Message: "must be positive",
		})
	}
	if l.PollIntervalMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.poll_interval_ms",
			Message: "must be positive",
		})
	}
	if l.PollIntervalMs > 0 && l.IdleTimeoutMs > 0 && l.PollIntervalMs > l.IdleTimeoutMs {
		errs = append(errs, ValidationError{
			Field:   "lock.poll_interval_ms",
			Message: "must not exceed idle_timeout_ms",
		})
	}
	if l.GrabRetryDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.grab_retry_delay_ms",
			Message: "must not be negative",
		})
	}
	if l.PasswordCapacity <= 0 || l.PasswordCapacity > security.MaxCredentialLine {
		errs = append(errs, ValidationError{
			Field:   "lock.password_capacity",
			Message: fmt.Sprintf("must be between 1 and %d", security.MaxCredentialLine),
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}
	if _, err := logging.ParseFormat(l.Format); err != nil {
		errs = append(errs, ValidationError{Field: "logging.format", Message: err.Error()})
	}

	switch strings.ToLower(l.Output) {
	case "stdout", "stderr", "":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "required when output includes a file",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("unknown output %q", l.Output),
		})
	}

	if l.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_size_mb", Message: "must not be negative"})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_backups", Message: "must not be negative"})
	}
	return errs
}
