// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package control

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Error codes for control sends.
const (
	CodeSendFailed = "CONTROL_SEND_FAILED"
)

// Connector is the host-owned control send path: one TCP connection per
// send, retried with fibonacci backoff. It resolves topology indices to
// the addresses it was last given, so it must be fed the same endpoint
// list as the topology manager.
type Connector struct {
	dialTimeout time.Duration
	backoffBase time.Duration
	maxRetries  uint64

	mu    sync.RWMutex
	addrs []string
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithDialTimeout bounds one connection attempt.
func WithDialTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.dialTimeout = d
	}
}

// WithBackoff sets the fibonacci backoff base and the retry budget per
// send.
func WithBackoff(base time.Duration, maxRetries uint64) ConnectorOption {
	return func(c *Connector) {
		c.backoffBase = base
		c.maxRetries = maxRetries
	}
}

// NewConnector creates a connector with no endpoints.
func NewConnector(opts ...ConnectorOption) *Connector {
	c := &Connector{
		dialTimeout: 5 * time.Second,
		backoffBase: 100 * time.Millisecond,
		maxRetries:  4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetEndpoints replaces the index-to-address mapping. Call alongside
// Manager.SetTopology with the same ordered list.
func (c *Connector) SetEndpoints(addrs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addrs = make([]string, len(addrs))
	copy(c.addrs, addrs)
}

// Send issues one control request to the endpoint at the given topology
// index. Records are newline-delimited; the payload must not contain a
// newline. Transient dial and write failures are retried with fibonacci
// backoff until the retry budget or ctx runs out.
func (c *Connector) Send(ctx context.Context, endpoint int, payload []byte) error {
	c.mu.RLock()
	if endpoint < 0 || endpoint >= len(c.addrs) {
		count := len(c.addrs)
		c.mu.RUnlock()
		return errEndpointUnknown(endpoint, count)
	}
	addr := c.addrs[endpoint]
	c.mu.RUnlock()

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.sendOnce(ctx, addr, payload); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code(CodeSendFailed).
			With("endpoint", endpoint).
			With("addr", addr).
			Wrap(err)
	}
	return nil
}

func (c *Connector) sendOnce(ctx context.Context, addr string, payload []byte) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // best effort on a one-shot connection

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, payload...)
	framed = append(framed, '\n')
	_, err = conn.Write(framed)
	return err
}
