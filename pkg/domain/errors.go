package domain

import "errors"

// ErrInstanceNotFound is returned when an instance id cannot be found in the store.
var ErrInstanceNotFound = errors.New("instance not found")

// ErrNoTriggerMatch is returned when no start node admits an inbound message.
var ErrNoTriggerMatch = errors.New("no trigger matched")

// ErrNotWaiting is returned when Resume is called on an instance that is not
// waiting for input. This is a caller bug, not a flow outcome.
var ErrNotWaiting = errors.New("instance is not waiting for input")

// ErrUnknownNode is returned when the state references a node id that does
// not exist in the flow. This indicates a corrupted state or a flow swap
// that removed nodes under a live instance.
var ErrUnknownNode = errors.New("unknown node id")
