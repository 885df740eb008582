package room

import "errors"

// Room error types. Invalid payloads surface to clients as validation acks;
// business-rule rejections are returned as false from Submit, not as errors.
var (
	ErrUnknownKind       = errors.New("unknown room kind")
	ErrInvalidPayload    = errors.New("invalid room payload")
	ErrEmptyOptions      = errors.New("poll requires at least two options")
	ErrInvalidAcceptMode = errors.New("accept mode must be 'links' or 'all'")
)
