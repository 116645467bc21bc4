// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"
)

// Engine defaults.
const (
	// DefaultWaitTimeout bounds each readiness wait.
	DefaultWaitTimeout = 10 * time.Second

	// DefaultMaxEvents is the number of ready descriptors per wait.
	DefaultMaxEvents = 10

	// DefaultBufferSize is the receive buffer size. Larger messages are
	// delivered in pieces and flagged without MSG_EOR.
	DefaultBufferSize = 2000

	// payloadPreviewSize bounds the payload logged at Debug level.
	payloadPreviewSize = 64

	// maxNotificationSize bounds the reassembly of a notification.
	maxNotificationSize = 1 << 16
)

// NewEngine returns a new [*Engine] owning the association state of ep.
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The ep argument is the endpoint to receive from and send through. The
// caller still owns ep and must close it after [*Engine.ReceiveLoop] returns.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewEngine(cfg *Config, ep *Endpoint, logger SLogger) *Engine {
	return &Engine{
		BufferSize:    DefaultBufferSize,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		MaxEvents:     DefaultMaxEvents,
		NewPoller:     cfg.NewPoller,
		PrintTicks:    false,
		Sockets:       cfg.Sockets,
		TimeNow:       cfg.TimeNow,
		WaitTimeout:   DefaultWaitTimeout,
		ep:            ep,
	}
}

// Engine runs the readiness loop of an [*Endpoint], decodes the messages and
// notifications it receives, tracks the current association, and sends
// messages on behalf of concurrent producers.
//
// A single lock serializes each complete drain pass of the receive loop
// against each [*Engine.Send] call. Observers are invoked while that lock is
// held and therefore must not call Send.
//
// The exported fields are safe to modify after construction but before
// calling [*Engine.ReceiveLoop] or [*Engine.Send].
type Engine struct {
	// BufferSize is the size of the receive buffer.
	//
	// Set by [NewEngine] to [DefaultBufferSize].
	BufferSize int

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewEngine] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewEngine] to the user-provided logger.
	Logger SLogger

	// MaxEvents is the number of ready descriptors per wait.
	//
	// Set by [NewEngine] to [DefaultMaxEvents].
	MaxEvents int

	// NewPoller creates the readiness poller.
	//
	// Set by [NewEngine] from [Config.NewPoller].
	NewPoller func(maxEvents int) (Poller, error)

	// PrintTicks enables a loopTick event whenever a wait times out.
	//
	// Set by [NewEngine] to false.
	PrintTicks bool

	// Sockets performs the system calls.
	//
	// Set by [NewEngine] from [Config.Sockets].
	Sockets Sockets

	// TimeNow is the function to get the current time.
	//
	// Set by [NewEngine] from [Config.TimeNow].
	TimeNow func() time.Time

	// WaitTimeout bounds each readiness wait.
	//
	// Set by [NewEngine] to [DefaultWaitTimeout].
	WaitTimeout time.Duration

	// mu guards the fields below.
	mu          sync.Mutex
	assoc       AssocID
	assocSpanID string
	buf         []byte
	ep          *Endpoint
	partial     []byte
	partialSize int
	registry    CallbackRegistry
}

// Endpoint returns the endpoint the engine operates on.
func (e *Engine) Endpoint() *Endpoint {
	return e.ep
}

// AssociationID returns the current association or zero when none is
// established.
func (e *Engine) AssociationID() AssocID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assoc
}

// RegisterAssociationUp appends an observer for SCTP_COMM_UP.
func (e *Engine) RegisterAssociationUp(obs AssociationUpObserver) {
	e.mu.Lock()
	e.registry.AddAssociationUp(obs)
	e.mu.Unlock()
}

// RegisterPeerAddressConfirmed appends an observer for SCTP_ADDR_CONFIRMED.
func (e *Engine) RegisterPeerAddressConfirmed(obs PeerAddressConfirmedObserver) {
	e.mu.Lock()
	e.registry.AddPeerAddressConfirmed(obs)
	e.mu.Unlock()
}

// ReceiveLoop waits for the endpoint to become readable and drains it
// until ctx is done or an error occurs.
//
// It returns ctx.Err() on cancellation, an [*OpError] of kind [ErrLoop]
// when the poller fails, an [*OpError] of kind [ErrReceive] when receiving
// fails for any reason other than EAGAIN, or the first error returned by
// an observer. Every one of these is meant to be fatal.
func (e *Engine) ReceiveLoop(ctx context.Context) error {
	poller, err := e.NewPoller(e.MaxEvents)
	if err != nil {
		return newOpError(ErrLoop, "epoll_create1", err)
	}
	defer poller.Close()

	if err := poller.Add(e.ep.fd); err != nil {
		return newOpError(ErrLoop, "epoll_ctl", err)
	}

	stop := context.AfterFunc(ctx, func() {
		poller.Wake()
	})
	defer stop()

	ready := make([]int, e.MaxEvents)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := poller.Wait(ready, e.WaitTimeout)
		if err != nil {
			return newOpError(ErrLoop, "epoll_wait", err)
		}
		if count <= 0 && e.PrintTicks {
			e.Logger.Info("loopTick", slog.Int("fd", e.ep.fd), slog.Time("t", e.TimeNow()))
		}
		if err := e.drainReady(ready[:count]); err != nil {
			return err
		}
	}
}

// drainReady runs one drain pass for each ready descriptor.
func (e *Engine) drainReady(fds []int) error {
	for _, fd := range fds {
		if err := e.drain(fd); err != nil {
			return err
		}
	}
	return nil
}

// drain receives and processes messages until the socket would block,
// holding the lock for the whole pass.
func (e *Engine) drain(fd int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buf) != e.BufferSize {
		e.buf = make([]byte, e.BufferSize)
	}
	for {
		res, err := e.Sockets.RecvMsg(fd, e.buf)
		if errors.Is(err, syscall.EAGAIN) {
			return nil
		}
		if err != nil {
			return newOpError(ErrReceive, "recvmsg", err)
		}
		if err := e.processMessage(fd, res); err != nil {
			return err
		}
	}
}

func (e *Engine) processMessage(fd int, res RecvResult) error {
	data := e.buf[:res.N]
	if res.Flags&msgNotification != 0 {
		return e.processNotificationPiece(fd, res.Flags, data)
	}

	e.Logger.Info(
		"recvMessage",
		slog.Int("assocID", int(res.Info.AssocID)),
		slog.String("assocSpanID", e.assocSpanID),
		slog.Int("fd", fd),
		slog.String("flags", explainRecvFlags(res.Flags)),
		slog.String("from", addrPortString(res.From)),
		slog.Int("size", res.N),
		slog.Int("ssn", int(res.Info.SSN)),
		slog.Int("stream", int(res.Info.Stream)),
		slog.Time("t", e.TimeNow()),
	)
	e.Logger.Debug(
		"recvMessageDetail",
		slog.Int("cumTSN", int(res.Info.CumTSN)),
		slog.Bool("hasInfo", res.HasInfo),
		slog.String("payload", fmt.Sprintf("%q", data[:min(len(data), payloadPreviewSize)])),
		slog.Int("ppid", int(res.Info.PPID)),
		slog.Int("rawFlags", res.Flags),
		slog.Int("tsn", int(res.Info.TSN)),
	)
	return nil
}

// processNotificationPiece decodes a notification once it is complete.
//
// A notification larger than the receive buffer arrives in pieces and only
// the last one carries MSG_EOR. Pieces are collected up to
// maxNotificationSize; a larger notification is logged as an
// [*OtherNotification] and never drives association state.
func (e *Engine) processNotificationPiece(fd, flags int, data []byte) error {
	eor := flags&msgEOR != 0
	if eor && e.partialSize <= 0 {
		return e.processNotification(fd, DecodeNotification(data))
	}

	e.partialSize += len(data)
	if e.partialSize <= maxNotificationSize {
		e.partial = append(e.partial, data...)
	} else {
		// Keep the header to report the type.
		e.partial = e.partial[:min(len(e.partial), snHeaderSize)]
	}
	if !eor {
		return nil
	}

	blob, size := e.partial, e.partialSize
	e.partial, e.partialSize = nil, 0
	if size > maxNotificationSize {
		return e.processNotification(fd, &OtherNotification{
			RawType: DecodeNotification(blob).Type(),
			Length:  uint32(size),
			Reason:  "oversized",
		})
	}
	return e.processNotification(fd, DecodeNotification(blob))
}

func (e *Engine) processNotification(fd int, n Notification) error {
	args := []any{
		slog.Int("fd", fd),
		slog.String("type", n.Type().String()),
	}
	args = append(args, n.LogAttrs()...)
	args = append(args, slog.Time("t", e.TimeNow()))
	e.Logger.Info("notification", args...)

	switch n.Kind() {
	case KindAssociationChange:
		return e.onAssociationChange(fd, n.(*AssociationChange))
	case KindPeerAddressChange:
		return e.onPeerAddressChange(fd, n.(*PeerAddressChange))
	default:
		return nil
	}
}

func (e *Engine) onAssociationChange(fd int, ac *AssociationChange) error {
	switch ac.State {
	case CommUp:
		e.assoc = ac.AssocID
		e.assocSpanID = NewSpanID()
		e.Logger.Info(
			"associationUp",
			slog.Int("assocID", int(ac.AssocID)),
			slog.String("assocSpanID", e.assocSpanID),
			slog.Int("fd", fd),
			slog.Int("inboundStreams", int(ac.InboundStreams)),
			slog.Int("outboundStreams", int(ac.OutboundStreams)),
			slog.Time("t", e.TimeNow()),
		)
		return e.registry.notifyAssociationUp(fd, ac.AssocID)

	case CommLost, ShutdownComplete, CantStartAssociation:
		if e.assoc == 0 || ac.AssocID != e.assoc {
			return nil
		}
		e.Logger.Info(
			"associationCleared",
			slog.Int("assocID", int(e.assoc)),
			slog.String("assocSpanID", e.assocSpanID),
			slog.Int("fd", fd),
			slog.String("state", ac.State.String()),
			slog.Time("t", e.TimeNow()),
		)
		e.assoc = 0
		e.assocSpanID = ""
		return nil

	default:
		return nil
	}
}

func (e *Engine) onPeerAddressChange(fd int, pc *PeerAddressChange) error {
	if pc.State != AddrConfirmed {
		return nil
	}
	e.Logger.Info(
		"peerAddressConfirmed",
		slog.Int("assocID", int(pc.AssocID)),
		slog.Int("fd", fd),
		slog.String("peer", addrString(pc.Address, pc.Family)),
		slog.Time("t", e.TimeNow()),
	)
	return e.registry.notifyPeerAddressConfirmed(fd, pc.AssocID, pc.Address)
}

// Send sends data on the current association without blocking.
//
// When no association is established, Send logs sendDiscarded and returns
// nil without touching the socket. A failing send is logged and returned
// as an [*OpError] of kind [ErrSend], which callers should treat as
// continuable.
func (e *Engine) Send(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.assoc == 0 {
		e.Logger.Info(
			"sendDiscarded",
			slog.Int("fd", e.ep.fd),
			slog.Int("size", len(data)),
			slog.Time("t", e.TimeNow()),
		)
		return nil
	}

	t0 := e.TimeNow()
	e.Logger.Info(
		"sendStart",
		slog.Int("assocID", int(e.assoc)),
		slog.String("assocSpanID", e.assocSpanID),
		slog.Int("fd", e.ep.fd),
		slog.Int("size", len(data)),
		slog.Time("t", t0),
	)
	count, err := e.Sockets.SendMsg(e.ep.fd, data, SndRcvInfo{AssocID: e.assoc})
	if err != nil {
		err = newOpError(ErrSend, "sendmsg", err)
	}
	e.Logger.Info(
		"sendDone",
		slog.Int("assocID", int(e.assoc)),
		slog.String("assocSpanID", e.assocSpanID),
		slog.Int("count", count),
		slog.Any("err", err),
		slog.String("errClass", e.ErrClassifier.Classify(err)),
		slog.Int("fd", e.ep.fd),
		slog.Int("size", len(data)),
		slog.Time("t0", t0),
		slog.Time("t", e.TimeNow()),
	)
	return err
}

