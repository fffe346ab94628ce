package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData tells the caller to skip evaluation for this cycle.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMaxReconnects is returned by a stream client that exhausted its reconnect budget.
	ErrMaxReconnects = errors.New("max reconnect attempts exceeded")
)

// ConnectivityError is a transient network failure on a venue connection.
type ConnectivityError struct {
	Venue   Venue
	Product Product
	Op      string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s/%s %s: %v", e.Venue, e.Product, e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ProtocolParseError marks a single malformed frame. It is never fatal.
type ProtocolParseError struct {
	Venue Venue
	Err   error
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("%s parse: %v", e.Venue, e.Err)
}

func (e *ProtocolParseError) Unwrap() error { return e.Err }
