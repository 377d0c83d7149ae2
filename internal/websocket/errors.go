package websocket

import "errors"

var (
	// ErrInvalidToken is returned when the JWT token is invalid
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrMissingToken is returned when the JWT token is missing
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidMessage is returned when an inbound frame has the wrong shape
	ErrInvalidMessage = errors.New("invalid message format")

	// ErrUnknownMessageType is returned for an inbound type without a handler
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrConnectionClosed is returned when trying to write to a closed connection
	ErrConnectionClosed = errors.New("connection closed")

	// ErrConnectionNotFound is returned for an unknown subscriber id
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrMaxConnectionsReached is returned when the hub is full
	ErrMaxConnectionsReached = errors.New("maximum connections reached")

	// ErrInvalidTopic is returned for a malformed topic string
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrForbiddenTopic is returned when the user may not subscribe to a topic
	ErrForbiddenTopic = errors.New("topic access denied")

	// ErrInvalidFilter is returned when a set_filters expression does not compile
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrBrokerUnavailable is returned by cross-process publishing without a broker
	ErrBrokerUnavailable = errors.New("fanout broker unavailable")

	// ErrBrokerClosed is returned by Subscribe once the broker is closed
	ErrBrokerClosed = errors.New("fanout broker closed")
)

// ErrInvalidConnectInput is returned by Connect without a transport or user
var ErrInvalidConnectInput = errors.New("transport and user id are required")
