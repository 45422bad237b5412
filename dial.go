package xproto

import (
	"context"
	"fmt"
	"net"
	"time"
)

// defaultSocketFactory dials TCP (or a Unix socket, when Endpoint.SocketPath
// is set) using the same net.Dialer{Timeout,KeepAlive} shape the teacher's
// proxy dialer uses for upstream connections. It is used whenever a caller
// of Connect leaves SessionProperties.Dialer nil.
type defaultSocketFactory struct{}

const (
	dialTimeout   = 10 * time.Second
	dialKeepAlive = 30 * time.Second
)

func (defaultSocketFactory) Dial(ctx context.Context, ep Endpoint, props SessionProperties) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout, KeepAlive: dialKeepAlive}

	if ep.SocketPath != "" {
		return d.DialContext(ctx, "unix", ep.SocketPath)
	}

	addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	return d.DialContext(ctx, "tcp", addr)
}
