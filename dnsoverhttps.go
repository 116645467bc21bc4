// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"

	"github.com/bassosimone/dnscodec"
	"github.com/bassosimone/dnsoverhttps"
	"github.com/bassosimone/safeconn"
	"github.com/bassosimone/sud"
)

// dnsOverHTTPSPath is the request path used for DNS-over-HTTPS queries.
const dnsOverHTTPSPath = "/dns-query"

// TLSEngine abstracts the TLS client implementation.
//
// By making [*DNSResolver] depend on an abstract engine we allow for
// unit testing and for using alternative TLS stacks.
type TLSEngine interface {
	// Client returns a client [TLSConn] wrapping conn.
	Client(conn net.Conn, config *tls.Config) TLSConn

	// Name returns the engine name for logging.
	Name() string

	// Parrot returns the fingerprint being mimicked or "".
	Parrot() string
}

// TLSEngineStdlib is the [TLSEngine] using crypto/tls.
type TLSEngineStdlib struct{}

var _ TLSEngine = TLSEngineStdlib{}

// Client implements [TLSEngine].
func (TLSEngineStdlib) Client(conn net.Conn, config *tls.Config) TLSConn {
	return tls.Client(conn, config)
}

// Name implements [TLSEngine].
func (TLSEngineStdlib) Name() string {
	return "stdlib"
}

// Parrot implements [TLSEngine].
func (TLSEngineStdlib) Parrot() string {
	return ""
}

// TLSConn is the connection returned by [TLSEngine].
type TLSConn interface {
	ConnectionState() tls.ConnectionState
	HandshakeContext(ctx context.Context) error
	net.Conn
}

// exchangeHTTPS performs a DNS-over-HTTPS exchange over the TCP conn.
//
// The TLS handshake offers only http/1.1 and verifies the certificate
// against the server IP address. The HTTP transport can use conn just once
// and never dials.
func (r *DNSResolver) exchangeHTTPS(ctx context.Context,
	conn net.Conn, query *dnscodec.Query, lc *dnsExchangeLogContext) (*dnscodec.Response, error) {
	tconn, err := r.handshake(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer tconn.Close()

	dialer := sud.NewSingleUseDialer(tconn)
	txp := &http.Transport{
		DialContext:       dialer.DialContext,
		DialTLSContext:    dialer.DialContext,
		DisableKeepAlives: true,
	}
	defer txp.CloseIdleConnections()

	url := "https://" + r.Server.String() + dnsOverHTTPSPath
	httpReq, queryMsg, err := dnsoverhttps.NewRequestWithHook(ctx, query, url, lc.observeQuery)
	if err != nil {
		return nil, err
	}
	httpResp, err := txp.RoundTrip(httpReq)
	if err != nil {
		return nil, err
	}
	return dnsoverhttps.ReadResponseWithHook(ctx, httpResp, queryMsg, lc.observeResponse)
}

// handshake runs the TLS client handshake, closing conn on failure.
func (r *DNSResolver) handshake(ctx context.Context, conn net.Conn) (TLSConn, error) {
	config := &tls.Config{
		NextProtos: []string{"http/1.1"},
		ServerName: r.Server.Addr().String(),
		Time:       r.TimeNow,
	}
	tconn := r.TLSEngine.Client(conn, config)

	t0 := r.TimeNow()
	deadline, _ := ctx.Deadline()
	r.Logger.Info(
		"tlsHandshakeStart",
		slog.Time("deadline", deadline),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t", t0),
		slog.String("tlsEngineName", r.TLSEngine.Name()),
		slog.String("tlsParrot", r.TLSEngine.Parrot()),
		slog.Any("tlsOfferedProtocols", config.NextProtos),
		slog.String("tlsServerName", config.ServerName),
	)

	err := tconn.HandshakeContext(ctx)
	state := tconn.ConnectionState()
	r.Logger.Info(
		"tlsHandshakeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", r.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", r.TimeNow()),
		slog.String("tlsNegotiatedProtocol", state.NegotiatedProtocol),
		slog.String("tlsVersion", tls.VersionName(state.Version)),
	)
	if err != nil {
		tconn.Close()
		return nil, err
	}
	return tconn, nil
}
