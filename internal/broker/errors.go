package broker

import "errors"

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMissingField     = errors.New("missing required field")
	ErrUnsupported      = errors.New("not supported in this mode")
	ErrNoAgent          = errors.New("no print agent available")
	ErrDelivery         = errors.New("failed to deliver print job")
)
