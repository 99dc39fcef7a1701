// SPDX-License-Identifier: MIT
// Package transport carries parameter state to and from control surfaces.
package transport

// Transport publishes parameter updates. Implementations must be safe for
// concurrent use and must never block the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// SetMessage is what control clients send to change a parameter.
type SetMessage struct {
	Index *int32   `json:"index"`
	Value *float32 `json:"value"`
}

// Update is what control clients receive: the full parameter table, or an
// error describing a rejected message.
type Update struct {
	Params any    `json:"params,omitempty"`
	Error  string `json:"error,omitempty"`
}
