// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/bassosimone/tlsstub"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var (
		mu      sync.Mutex
		records []slog.Record
	)
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		},
	}
	return slog.New(handler), &records
}

// messagesOf returns the message of each record, in order.
func messagesOf(records []slog.Record) []string {
	var out []string
	for _, record := range records {
		out = append(out, record.Message)
	}
	return out
}

// attrOf returns the value of the named attribute of record.
func attrOf(record slog.Record, key string) (slog.Value, bool) {
	var (
		found bool
		value slog.Value
	)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value, found = attr.Value, true
			return false
		}
		return true
	})
	return value, found
}

// findRecord returns the first record with the given message.
func findRecord(records []slog.Record, msg string) (slog.Record, bool) {
	for _, record := range records {
		if record.Message == msg {
			return record, true
		}
	}
	return slog.Record{}, false
}

// funcSockets is a [Sockets] whose methods are function fields. A nil
// field succeeds, except RecvMsgFunc, which reports EAGAIN.
type funcSockets struct {
	SocketFunc      func(family Family) (int, error)
	SetNonblockFunc func(fd int) error
	BindFunc        func(fd int, addr netip.AddrPort) error
	ListenFunc      func(fd int, backlog int) error
	ConnectFunc     func(fd int, addr netip.AddrPort) error
	SetsockoptFunc  func(fd int, opt int, value []byte) error
	RecvMsgFunc     func(fd int, buf []byte) (RecvResult, error)
	SendMsgFunc     func(fd int, buf []byte, info SndRcvInfo) (int, error)
	CloseFunc       func(fd int) error
}

var _ Sockets = &funcSockets{}

func (s *funcSockets) Socket(family Family) (int, error) {
	if s.SocketFunc != nil {
		return s.SocketFunc(family)
	}
	return 3, nil
}

func (s *funcSockets) SetNonblock(fd int) error {
	if s.SetNonblockFunc != nil {
		return s.SetNonblockFunc(fd)
	}
	return nil
}

func (s *funcSockets) Bind(fd int, addr netip.AddrPort) error {
	if s.BindFunc != nil {
		return s.BindFunc(fd, addr)
	}
	return nil
}

func (s *funcSockets) Listen(fd int, backlog int) error {
	if s.ListenFunc != nil {
		return s.ListenFunc(fd, backlog)
	}
	return nil
}

func (s *funcSockets) Connect(fd int, addr netip.AddrPort) error {
	if s.ConnectFunc != nil {
		return s.ConnectFunc(fd, addr)
	}
	return nil
}

func (s *funcSockets) Setsockopt(fd int, opt int, value []byte) error {
	if s.SetsockoptFunc != nil {
		return s.SetsockoptFunc(fd, opt, value)
	}
	return nil
}

func (s *funcSockets) RecvMsg(fd int, buf []byte) (RecvResult, error) {
	if s.RecvMsgFunc != nil {
		return s.RecvMsgFunc(fd, buf)
	}
	return RecvResult{}, syscall.EAGAIN
}

func (s *funcSockets) SendMsg(fd int, buf []byte, info SndRcvInfo) (int, error) {
	if s.SendMsgFunc != nil {
		return s.SendMsgFunc(fd, buf, info)
	}
	return len(buf), nil
}

func (s *funcSockets) Close(fd int) error {
	if s.CloseFunc != nil {
		return s.CloseFunc(fd)
	}
	return nil
}

// funcPoller is a [Poller] whose methods are function fields. A nil
// field succeeds and a nil WaitFunc reports a timeout.
type funcPoller struct {
	AddFunc   func(fd int) error
	WaitFunc  func(ready []int, timeout time.Duration) (int, error)
	WakeFunc  func() error
	CloseFunc func() error
}

var _ Poller = &funcPoller{}

func (p *funcPoller) Add(fd int) error {
	if p.AddFunc != nil {
		return p.AddFunc(fd)
	}
	return nil
}

func (p *funcPoller) Wait(ready []int, timeout time.Duration) (int, error) {
	if p.WaitFunc != nil {
		return p.WaitFunc(ready, timeout)
	}
	return 0, nil
}

func (p *funcPoller) Wake() error {
	if p.WakeFunc != nil {
		return p.WakeFunc()
	}
	return nil
}

func (p *funcPoller) Close() error {
	if p.CloseFunc != nil {
		return p.CloseFunc()
	}
	return nil
}

// newTestConfig returns a [*Config] using the given fakes and a fixed clock.
func newTestConfig(sockets Sockets, poller Poller) *Config {
	cfg := NewConfig()
	cfg.Sockets = sockets
	cfg.NewPoller = func(maxEvents int) (Poller, error) {
		return poller, nil
	}
	cfg.TimeNow = func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return cfg
}

// newTestEndpoint returns an IPv4 [*Endpoint] for fd 3 using sockets.
func newTestEndpoint(sockets Sockets) *Endpoint {
	return &Endpoint{fd: 3, family: FamilyIPv4, sockets: sockets}
}

// recvQueue is a thread-safe FIFO of receive outcomes serving RecvMsgFunc.
// An empty queue reports EAGAIN.
type recvQueue struct {
	mu    sync.Mutex
	items []recvItem
}

type recvItem struct {
	data  []byte
	flags int
	info  SndRcvInfo
	err   error
}

// pushNotification enqueues a notification blob.
func (q *recvQueue) pushNotification(blob []byte) {
	q.mu.Lock()
	q.items = append(q.items, recvItem{data: blob, flags: msgNotification | msgEOR})
	q.mu.Unlock()
}

// pushData enqueues an ordinary message.
func (q *recvQueue) pushData(data []byte, info SndRcvInfo) {
	q.mu.Lock()
	q.items = append(q.items, recvItem{data: data, flags: msgEOR, info: info})
	q.mu.Unlock()
}

// pushNotificationPiece enqueues a piece of a notification; last marks
// the piece carrying MSG_EOR.
func (q *recvQueue) pushNotificationPiece(piece []byte, last bool) {
	flags := msgNotification
	if last {
		flags |= msgEOR
	}
	q.mu.Lock()
	q.items = append(q.items, recvItem{data: piece, flags: flags})
	q.mu.Unlock()
}

// pushError enqueues a receive error.
func (q *recvQueue) pushError(err error) {
	q.mu.Lock()
	q.items = append(q.items, recvItem{err: err})
	q.mu.Unlock()
}

func (q *recvQueue) recv(fd int, buf []byte) (RecvResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) <= 0 {
		return RecvResult{}, syscall.EAGAIN
	}
	item := q.items[0]
	q.items = q.items[1:]
	if item.err != nil {
		return RecvResult{}, item.err
	}
	n := copy(buf, item.data)
	return RecvResult{
		N:       n,
		Flags:   item.flags,
		From:    netip.MustParseAddrPort("10.0.0.2:9000"),
		Info:    item.info,
		HasInfo: item.flags&msgNotification == 0,
	}, nil
}

// assocChangeBlob builds an SCTP_ASSOC_CHANGE notification.
func assocChangeBlob(state AssocChangeState, id AssocID) []byte {
	b := make([]byte, assocChangeSize)
	ne := binary.NativeEndian
	ne.PutUint16(b[0:], uint16(TypeAssocChange))
	ne.PutUint32(b[4:], assocChangeSize)
	ne.PutUint16(b[8:], uint16(state))
	ne.PutUint16(b[12:], 10)
	ne.PutUint16(b[14:], 5)
	ne.PutUint32(b[16:], uint32(id))
	return b
}

// paddrChangeBlob builds an SCTP_PEER_ADDR_CHANGE notification.
func paddrChangeBlob(addr netip.AddrPort, state PeerAddrState, id AssocID) []byte {
	b := make([]byte, paddrChangeSize)
	ne := binary.NativeEndian
	ne.PutUint16(b[0:], uint16(TypePeerAddrChange))
	ne.PutUint32(b[4:], paddrChangeSize)
	putSockaddr(b[8:8+sockaddrStorageSize], addr)
	ne.PutUint32(b[136:], uint32(state))
	ne.PutUint32(b[144:], uint32(id))
	return b
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr], [safeconn.RemoteAddr], and [safeconn.Network]
// during construction.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.UDPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.UDPAddr{} },
	}
}

// newMockTLSEngine returns a [*tlsstub.FuncTLSEngine] whose ClientFunc
// returns conn regardless of the wrapped connection.
func newMockTLSEngine(conn TLSConn) *tlsstub.FuncTLSEngine[TLSConn] {
	return &tlsstub.FuncTLSEngine[TLSConn]{
		ClientFunc: func(c net.Conn, config *tls.Config) TLSConn {
			return conn
		},
		NameFunc: func() string {
			return "mock"
		},
		ParrotFunc: func() string {
			return ""
		},
	}
}
