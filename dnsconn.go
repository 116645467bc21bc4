//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/measurexlite/conn.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/conn.go
//

package sctpcat

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// wrapDNSConn returns a [net.Conn] that logs I/O at Debug level and that
// is closed as soon as ctx is done, so a lookup never outlives the context
// of the resolution. Closing the returned conn unregisters the watcher.
func (r *DNSResolver) wrapDNSConn(ctx context.Context, conn net.Conn) net.Conn {
	dc := &dnsConn{
		Conn:    conn,
		laddr:   safeconn.LocalAddr(conn),
		r:       r,
		raddr:   safeconn.RemoteAddr(conn),
		network: safeconn.Network(conn),
	}
	dc.stop = context.AfterFunc(ctx, func() {
		conn.Close()
	})
	return dc
}

// dnsConn is the conn returned by [*DNSResolver.wrapDNSConn].
type dnsConn struct {
	net.Conn
	closeonce sync.Once
	laddr     string
	network   string
	r         *DNSResolver
	raddr     string
	stop      func() bool
}

// Close unregisters the context watcher and closes the underlying conn.
//
// Subsequent calls return [net.ErrClosed].
func (c *dnsConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		c.stop()
		err = c.Conn.Close()
		c.logIO("dnsConnClose", time.Time{}, 0, err)
	})
	return
}

// Read implements [net.Conn].
func (c *dnsConn) Read(buf []byte) (int, error) {
	t0 := c.r.TimeNow()
	count, err := c.Conn.Read(buf)
	c.logIO("dnsConnRead", t0, count, err)
	return count, err
}

// Write implements [net.Conn].
func (c *dnsConn) Write(data []byte) (int, error) {
	t0 := c.r.TimeNow()
	count, err := c.Conn.Write(data)
	c.logIO("dnsConnWrite", t0, count, err)
	return count, err
}

func (c *dnsConn) logIO(msg string, t0 time.Time, count int, err error) {
	c.r.Logger.Debug(
		msg,
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.r.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.network),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", c.r.TimeNow()),
	)
}
