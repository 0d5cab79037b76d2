// Package relay moves phase-boundary messages between role instances. The
// protocol core is transport-agnostic: in production the "transport" is an
// operator retyping printed values, in tests it is an in-memory channel.
package relay

import "errors"

// ErrClosed reports a receive on a relay whose sender is gone.
var ErrClosed = errors.New("relay closed")

// Channel carries one phase boundary. Receive blocks until a value is
// available; the protocol specifies no timeout.
type Channel interface {
	Send(v interface{}) error
	Receive() (interface{}, error)
	Close() error
}

// Memory is an in-process Channel over a Go channel. It backs tests and the
// single-process demo mode.
type Memory struct {
	ch chan interface{}
}

func NewMemory(capacity int) *Memory {
	return &Memory{ch: make(chan interface{}, capacity)}
}

func (m *Memory) Send(v interface{}) error {
	m.ch <- v
	return nil
}

func (m *Memory) Receive() (interface{}, error) {
	v, ok := <-m.ch
	if !ok {
		return nil, ErrClosed
	}
	return v, nil
}

func (m *Memory) Close() error {
	close(m.ch)
	return nil
}
