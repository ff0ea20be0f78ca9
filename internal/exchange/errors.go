package exchange

import "fmt"

// NetworkError indicates a timeout or connection-level failure talking to
// an exchange API.
type NetworkError struct {
	Exchange string
	Op       string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: network error: %v", e.Exchange, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError indicates a non-success HTTP status or a malformed or
// incomplete payload from an exchange API.
type UpstreamError struct {
	Exchange   string
	Op         string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: upstream error (%d): %s", e.Exchange, e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: upstream error: %s", e.Exchange, e.Op, e.Message)
}

// ConfigError indicates an unknown exchange identifier or missing
// credentials for an operation that requires them.
type ConfigError struct {
	Exchange string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: config error: %s", e.Exchange, e.Message)
}

// ValidationError indicates a malformed trading pair identifier.
type ValidationError struct {
	Pair    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pair %q: %s", e.Pair, e.Message)
}
