// Package protocol defines the versioned wire contract between catalog
// clients and the server: a tagged JSON envelope per request, one JSON
// document per line of the stream. The envelope is deliberately decoupled
// from any in-process representation so either side can evolve independently.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the wire schema version carried in every request envelope.
const Version = 1

// Request type discriminators.
const (
	TypeAuth     = "auth"
	TypeCommand  = "command"
	TypeSnapshot = "snapshot"
)

// Request is the client→server envelope. Exactly one payload field matching
// Type must be set; snapshot requests carry no payload at all.
type Request struct {
	Version int       `json:"v"              validate:"required,eq=1"`
	Type    string    `json:"type"           validate:"required,oneof=auth command snapshot"`
	SentAt  time.Time `json:"sent_at"`
	Auth    *Auth     `json:"auth,omitempty"`
	Command *Command  `json:"command,omitempty"`
}

// Auth is the payload of a TypeAuth request. Password travels in plaintext
// and is hashed server-side for storage comparison; transport security is the
// deployment's concern.
type Auth struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Register bool   `json:"register"`
}

// Command is the payload of a TypeCommand request. PasswordHash must match
// the authenticated user's stored hash; the server rejects the command
// otherwise.
type Command struct {
	Name         string   `json:"name" validate:"required"`
	Args         []string `json:"args"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
}

// Response is the server→client envelope for auth and command requests.
// Snapshot responses are the raw product array, not wrapped in a Response.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// NewAuthRequest builds a login or registration request envelope.
func NewAuthRequest(username, password string, register bool) *Request {
	return &Request{
		Version: Version,
		Type:    TypeAuth,
		SentAt:  time.Now().UTC(),
		Auth:    &Auth{Username: username, Password: password, Register: register},
	}
}

// NewCommandRequest builds a command request envelope.
func NewCommandRequest(name string, args []string, username, passwordHash string) *Request {
	return &Request{
		Version: Version,
		Type:    TypeCommand,
		SentAt:  time.Now().UTC(),
		Command: &Command{Name: name, Args: args, Username: username, PasswordHash: passwordHash},
	}
}

// NewSnapshotRequest builds a bulk-read request envelope.
func NewSnapshotRequest() *Request {
	return &Request{Version: Version, Type: TypeSnapshot, SentAt: time.Now().UTC()}
}

// OK builds a success response. data, when non-nil, is marshalled into the
// Data field.
func OK(message string, data any) *Response {
	return newResponse(true, message, data)
}

// Fail builds a failure response.
func Fail(message string) *Response {
	return newResponse(false, message, nil)
}

func newResponse(success bool, message string, data any) *Response {
	resp := &Response{Success: success, Message: message, SentAt: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			// Data is always a server-controlled type; a marshal failure is a bug.
			return &Response{
				Success: false,
				Message: fmt.Sprintf("internal error: encode response data: %v", err),
				SentAt:  resp.SentAt,
			}
		}
		resp.Data = raw
	}
	return resp
}

// CheckEnvelope validates the structural parts of a decoded request that the
// validator tags cannot express: payload presence must agree with the type tag.
func (r *Request) CheckEnvelope() error {
	switch r.Type {
	case TypeAuth:
		if r.Auth == nil {
			return fmt.Errorf("auth request missing auth payload")
		}
	case TypeCommand:
		if r.Command == nil {
			return fmt.Errorf("command request missing command payload")
		}
	case TypeSnapshot:
		// no payload
	default:
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	if r.Version != Version {
		return fmt.Errorf("unsupported protocol version %d", r.Version)
	}
	return nil
}
