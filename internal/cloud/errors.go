package cloud

import "fmt"

// AuthError reports a failed login or refresh. The session is always cleared
// before one is returned, so the next attempt starts with a fresh login.
type AuthError struct {
	Op         string // "login" or "refresh"
	StatusCode int    // 0 on transport failure
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth %s failed: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("auth %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError reports an unreachable endpoint or a non-2xx response other
// than 401. It triggers failover to the other endpoint.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
