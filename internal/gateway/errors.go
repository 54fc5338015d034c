package gateway

import "errors"

// Sentinel errors returned by the gateway client. Wrap with fmt.Errorf and
// %w to add context; check with errors.Is.
var (
	// ErrGatewayUnreachable indicates the gateway could not be reached at
	// the configured host and port, or did not respond in time.
	ErrGatewayUnreachable = errors.New("gateway: cannot connect to gateway")

	// ErrAuthenticationFailed indicates the gateway is reachable over HTTP
	// but rejected the encrypted exchange, which means the configured EUID
	// does not match the gateway.
	ErrAuthenticationFailed = errors.New("gateway: authentication failed, check EUID")

	// ErrCommandFailed indicates the gateway answered but the response did
	// not report success, or could not be interpreted.
	ErrCommandFailed = errors.New("gateway: command rejected")

	// ErrDecode indicates a gateway response could not be decrypted.
	// An undecryptable response from a reachable host usually means the
	// wrong EUID.
	ErrDecode = errors.New("gateway: cannot decrypt response")

	// ErrInvalidPosition indicates a cover position outside the 0-100 range.
	ErrInvalidPosition = errors.New("gateway: cover position must be between 0 and 100")
)
