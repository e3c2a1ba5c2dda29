//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package remote proxies externally hosted tool servers into the local
// registry under a "remote.<server>.<tool>" name.
package remote

import "context"

// Transport moves one message at a time to and from a remote tool server.
// Implementations frame messages as single JSON lines.
type Transport interface {
	// Send writes one complete message.
	Send(ctx context.Context, msg []byte) error

	// Receive blocks until the next complete message arrives. It returns an
	// error when the peer is gone; the error is terminal.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears the connection down and releases the peer process, if any.
	Close() error
}
