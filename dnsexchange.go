// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"log/slog"
	"time"
)

// dnsExchangeLogContext emits the dnsExchangeStart, dnsQuery, dnsResponse,
// and dnsExchangeDone events of a single [*DNSResolver] lookup, whichever
// transport carries it.
type dnsExchangeLogContext struct {
	ErrClassifier  ErrClassifier
	LocalAddr      string
	Logger         SLogger
	Protocol       string
	RemoteAddr     string
	ServerProtocol string
	TimeNow        func() time.Time

	// rawQuery is the last query seen, repeated in the response event.
	rawQuery []byte
}

// endpointAttrs returns the attributes shared by every event.
func (lc *dnsExchangeLogContext) endpointAttrs(extra ...any) []any {
	return append([]any{
		slog.String("localAddr", lc.LocalAddr),
		slog.String("protocol", lc.Protocol),
		slog.String("remoteAddr", lc.RemoteAddr),
		slog.String("serverProtocol", lc.ServerProtocol),
	}, extra...)
}

func (lc *dnsExchangeLogContext) logStart(t0, deadline time.Time) {
	lc.Logger.Info("dnsExchangeStart", lc.endpointAttrs(
		slog.Time("deadline", deadline),
		slog.Time("t", t0),
	)...)
}

func (lc *dnsExchangeLogContext) logDone(t0, deadline time.Time, err error) {
	lc.Logger.Info("dnsExchangeDone", lc.endpointAttrs(
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", lc.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", lc.TimeNow()),
	)...)
}

// observeQuery is installed as the transport ObserveRawQuery hook.
func (lc *dnsExchangeLogContext) observeQuery(rawQuery []byte) {
	lc.rawQuery = rawQuery
	lc.Logger.Info("dnsQuery", lc.endpointAttrs(
		slog.Any("dnsRawQuery", rawQuery),
		slog.Time("t", lc.TimeNow()),
	)...)
}

// observeResponse is installed as the transport ObserveRawResponse hook.
func (lc *dnsExchangeLogContext) observeResponse(rawResp []byte) {
	lc.Logger.Info("dnsResponse", lc.endpointAttrs(
		slog.Any("dnsRawQuery", lc.rawQuery),
		slog.Any("dnsRawResponse", rawResp),
		slog.Time("t", lc.TimeNow()),
	)...)
}
