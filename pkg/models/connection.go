package models

// ConnectionState is the advisory state of a server connection. Each
// operation performs its own login-retry on demand, so the state is not
// required for correctness; it lets a caller short-circuit before
// attempting further calls.
type ConnectionState string

const (
	// StateUnknown is the initial state, or the state of an invalid handle.
	StateUnknown ConnectionState = "unknown"
	// StateConnected means the last authentication succeeded.
	StateConnected ConnectionState = "connected"
	// StateHostInvalid means the host URL could not be understood.
	StateHostInvalid ConnectionState = "host_invalid"
	// StateNoHostConnection means the host could not be reached.
	StateNoHostConnection ConnectionState = "no_host_connection"
	// StateAuthenticationFailure means the host rejected the credentials.
	StateAuthenticationFailure ConnectionState = "authentication_failure"
	// StateFailure means communication failed for another reason.
	StateFailure ConnectionState = "failure"
)
