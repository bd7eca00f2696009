package registration

import "fmt"

// ConfigurationError reports an incompatible collaborator configuration,
// detected once before the first resolution level. It is fatal: the run
// aborts before any optimization happens.
type ConfigurationError struct {
	// Component names the mismatched collaborator
	Component string

	// Reason describes the mismatch
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Component, e.Reason)
}
