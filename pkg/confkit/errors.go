package confkit

import "fmt"

// ConfigurationError reports a missing or invalid configuration value. It is
// raised by Validate at load time and is fatal for the process; nothing
// recovers from it per request.
type ConfigurationError struct {
	Section string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s config: %s", e.Section, e.Reason)
}

// ConfigErr constructs a ConfigurationError for the given config section.
func ConfigErr(section, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Section: section, Reason: fmt.Sprintf(format, args...)}
}
