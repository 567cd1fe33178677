// Package protocol defines the JSON messages exchanged between the broker,
// requesters and agents. Every message is an object with a "type" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeGetAuthCode       = "get_auth_code"
	TypeClientAuth        = "client_auth"
	TypeCheckClientStatus = "check_client_status"
	TypePrintRequest      = "print_request"

	TypeAuthCodeGenerated = "auth_code_generated"
	TypeAuthSuccess       = "auth_success"
	TypeAuthError         = "auth_error"
	TypeClientStatus      = "client_status"
	TypePrintQueued       = "print_queued"
	TypeError             = "error"
)

var ErrMalformed = errors.New("malformed message")

// Inbound is the union of fields any inbound message may carry.
type Inbound struct {
	Type     string          `json:"type"`
	Username string          `json:"username,omitempty"`
	Password string          `json:"password,omitempty"`
	ClientID string          `json:"client_id,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func (m Inbound) HasContent() bool {
	return len(m.Content) > 0 && string(m.Content) != "null"
}

// Decode parses a single text frame. A frame that is not a JSON object or has
// no type is malformed.
func Decode(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return msg, nil
}

// Reply covers every single-purpose reply: auth_code_generated, auth_success,
// auth_error, print_queued and error.
type Reply struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Presence is the broker-wide agent snapshot, both broadcast and returned
// from an unscoped check_client_status.
type Presence struct {
	Type      string   `json:"type"`
	Connected bool     `json:"connected"`
	Clients   []string `json:"clients"`
	Message   string   `json:"message,omitempty"`
}

// ScopedStatus answers check_client_status for a single account.
type ScopedStatus struct {
	Type      string  `json:"type"`
	Connected bool    `json:"connected"`
	ClientID  *string `json:"client_id"`
}

func NewReply(typ, message string) Reply {
	return Reply{Type: typ, Message: message}
}

func ErrorReply(message string) Reply {
	return Reply{Type: TypeError, Message: message}
}

func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}
