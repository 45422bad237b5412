package xproto

import "fmt"

// Authenticator drives one SASL-style authentication mechanism. The core
// ships PLAIN; the interface admits multi-round mechanisms like
// MYSQL41 and SHA256_MEMORY (see MYSQL41Authenticator / SHA256MemoryAuthenticator
// below) without changing its method set — the same shape the teacher's
// scramSHA256Auth uses for a three-message SASL exchange against
// PostgreSQL, generalized into a reusable driver interface instead of one
// free function per mechanism.
type Authenticator interface {
	// Name returns the mechanism's wire name, e.g. "PLAIN".
	Name() string

	// VerifyServer reports whether this mechanism is usable given the
	// server's advertised authentication.mechanisms list. Returning
	// false before any bytes are sent yields AuthMechanismUnsupported.
	VerifyServer(mechanisms []string) bool

	// InitialResponse produces the first AuthenticateStart.auth_data.
	InitialResponse(props SessionProperties) []byte

	// ContinueResponse produces the next AuthenticateContinue.auth_data
	// in response to a server challenge. Mechanisms that complete in one
	// round (PLAIN) never have this called.
	ContinueResponse(serverChallenge []byte) ([]byte, error)
}

// PlainAuthenticator implements SASL PLAIN: a single round carrying
// "schema\0user\0password" in cleartext, safe only over TLS.
type PlainAuthenticator struct{}

func (PlainAuthenticator) Name() string { return "PLAIN" }

func (PlainAuthenticator) VerifyServer(mechanisms []string) bool {
	for _, m := range mechanisms {
		if m == "PLAIN" {
			return true
		}
	}
	return false
}

func (PlainAuthenticator) InitialResponse(props SessionProperties) []byte {
	buf := make([]byte, 0, len(props.Schema)+len(props.User)+len(props.Password)+2)
	buf = append(buf, props.Schema...)
	buf = append(buf, 0)
	buf = append(buf, props.User...)
	buf = append(buf, 0)
	buf = append(buf, props.Password...)
	return buf
}

func (PlainAuthenticator) ContinueResponse(serverChallenge []byte) ([]byte, error) {
	return nil, fmt.Errorf("xproto: PLAIN does not support continuation")
}

// unimplementedAuthenticator satisfies Authenticator for a named
// mechanism the core recognizes but does not yet drive end to end.
// VerifyServer always reports false, so the Protocol State Machine fails
// fast with AuthMechanismUnsupported instead of sending a request the
// mechanism can't complete — matching the teacher's authenticateMySQL,
// which returns a named "unsupported auth plugin" error rather than
// attempting a guess.
type unimplementedAuthenticator struct {
	name string
}

func (u unimplementedAuthenticator) Name() string                       { return u.name }
func (u unimplementedAuthenticator) VerifyServer(_ []string) bool       { return false }
func (u unimplementedAuthenticator) InitialResponse(_ SessionProperties) []byte { return nil }
func (u unimplementedAuthenticator) ContinueResponse(_ []byte) ([]byte, error) {
	return nil, ErrMechanismNotImplemented
}

// MYSQL41Authenticator returns a placeholder for the MYSQL41 mechanism,
// reserved by spec.md §2 but not implemented by the core.
func MYSQL41Authenticator() Authenticator { return unimplementedAuthenticator{name: "MYSQL41"} }

// SHA256MemoryAuthenticator returns a placeholder for the SHA256_MEMORY
// mechanism, reserved by spec.md §2 but not implemented by the core.
func SHA256MemoryAuthenticator() Authenticator {
	return unimplementedAuthenticator{name: "SHA256_MEMORY"}
}

// DefaultAuthenticators returns the mechanism preference order used when
// SessionProperties.AuthMechanisms is empty: PLAIN only, matching
// spec.md §2 ("the core ships with a PLAIN mechanism").
func DefaultAuthenticators() []Authenticator {
	return []Authenticator{PlainAuthenticator{}}
}

// authenticatorsFor resolves SessionProperties.AuthMechanisms (a list of
// mechanism names) to concrete Authenticators, falling back to
// DefaultAuthenticators when the list is empty.
func authenticatorsFor(props SessionProperties) []Authenticator {
	if len(props.AuthMechanisms) == 0 {
		return DefaultAuthenticators()
	}
	out := make([]Authenticator, 0, len(props.AuthMechanisms))
	for _, name := range props.AuthMechanisms {
		switch name {
		case "PLAIN":
			out = append(out, PlainAuthenticator{})
		case "MYSQL41":
			out = append(out, MYSQL41Authenticator())
		case "SHA256_MEMORY":
			out = append(out, SHA256MemoryAuthenticator())
		}
	}
	return out
}

// selectAuthenticator picks the first configured Authenticator that
// VerifyServer accepts given the server's advertised mechanisms. It
// returns an AuthError(pre-handshake) if none matches.
func selectAuthenticator(props SessionProperties, serverMechanisms []string) (Authenticator, error) {
	for _, a := range authenticatorsFor(props) {
		if a.VerifyServer(serverMechanisms) {
			return a, nil
		}
	}
	return nil, &AuthError{
		PreHandshake: true,
		Message:      fmt.Sprintf("no configured mechanism accepted by server (server offers: %v)", serverMechanisms),
	}
}
