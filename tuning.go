// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"log/slog"
	"net/netip"
	"time"
)

// RTOInfo holds the retransmission timeout bounds in milliseconds. A zero
// field leaves the kernel value unchanged.
type RTOInfo struct {
	Initial uint32
	Min     uint32
	Max     uint32
}

// NewTuner returns a new [*Tuner].
//
// The cfg argument contains the common configuration for sctpcat operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewTuner(cfg *Config, logger SLogger) *Tuner {
	return &Tuner{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Sockets:       cfg.Sockets,
		TimeNow:       cfg.TimeNow,
	}
}

// Tuner sets the path and association control knobs of an SCTP socket.
//
// Every method issues exactly one setsockopt, logs setsockoptDone, and
// returns an [*OpError] of kind [ErrTuning] on failure.
type Tuner struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	Logger SLogger

	// Sockets performs the system calls.
	Sockets Sockets

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

// DisableHeartbeat suppresses heartbeats on the path to peer within the
// given association.
func (t *Tuner) DisableHeartbeat(fd int, id AssocID, peer netip.AddrPort) error {
	value := encodePeerAddrParams(id, peer, 0, sppHBDisable)
	err := t.setsockopt(fd, sctpPeerAddrParams, "setsockopt(SCTP_PEER_ADDR_PARAMS)", value,
		slog.Int("assocID", int(id)), slog.String("peer", peer.String()))
	if err == nil {
		t.Logger.Info(
			"heartbeatDisabled",
			slog.Int("assocID", int(id)),
			slog.Int("fd", fd),
			slog.String("peer", peer.String()),
			slog.Time("t", t.TimeNow()),
		)
	}
	return err
}

// SetPathMaxRetransmissions bounds the retransmissions on every path of
// the association.
func (t *Tuner) SetPathMaxRetransmissions(fd int, id AssocID, limit uint16) error {
	value := encodePeerAddrParams(id, netip.AddrPort{}, limit, 0)
	return t.setsockopt(fd, sctpPeerAddrParams, "setsockopt(SCTP_PEER_ADDR_PARAMS)", value,
		slog.Int("assocID", int(id)), slog.Int("pathMaxRetrans", int(limit)))
}

// SetAssociationMaxRetransmissions bounds the retransmissions of the
// association as a whole.
func (t *Tuner) SetAssociationMaxRetransmissions(fd int, id AssocID, limit uint16) error {
	value := encodeAssocParams(id, limit)
	return t.setsockopt(fd, sctpAssocInfo, "setsockopt(SCTP_ASSOCINFO)", value,
		slog.Int("assocID", int(id)), slog.Int("assocMaxRetrans", int(limit)))
}

// SetRTO sets the retransmission timeout bounds. Use the zero [AssocID]
// to change the socket defaults for future associations.
func (t *Tuner) SetRTO(fd int, id AssocID, rto RTOInfo) error {
	return t.setsockopt(fd, sctpRTOInfo, "setsockopt(SCTP_RTOINFO)", encodeRTOInfo(id, rto),
		slog.Int("assocID", int(id)),
		slog.Int("rtoInitial", int(rto.Initial)),
		slog.Int("rtoMin", int(rto.Min)),
		slog.Int("rtoMax", int(rto.Max)),
	)
}

func (t *Tuner) setsockopt(fd, opt int, op string, value []byte, attrs ...any) error {
	t0 := t.TimeNow()
	var err error
	if serr := t.Sockets.Setsockopt(fd, opt, value); serr != nil {
		err = newOpError(ErrTuning, op, serr)
	}
	args := []any{
		slog.Any("err", err),
		slog.String("errClass", t.ErrClassifier.Classify(err)),
		slog.Int("fd", fd),
		slog.String("op", op),
	}
	args = append(args, attrs...)
	args = append(args, slog.Time("t0", t0), slog.Time("t", t.TimeNow()))
	t.Logger.Info("setsockoptDone", args...)
	return err
}

// HeartbeatDisabler is a [PeerAddressConfirmedObserver] that disables
// heartbeats on confirmed paths except the primary one, so that only the
// primary path keeps probing in multi-homed deployments.
//
// The kernel confirms the primary path during the handshake and usually
// reports only secondary paths as confirmed, so Primary may be left zero.
type HeartbeatDisabler struct {
	// Primary is the primary peer address, whose heartbeats are kept.
	// The zero value matches no address.
	Primary netip.AddrPort

	// Tuner issues the socket option calls.
	Tuner *Tuner
}

var _ PeerAddressConfirmedObserver = &HeartbeatDisabler{}

// OnPeerAddressConfirmed implements [PeerAddressConfirmedObserver].
func (h *HeartbeatDisabler) OnPeerAddressConfirmed(fd int, id AssocID, peer netip.AddrPort) error {
	if h.Primary.IsValid() && peer.Addr().Unmap() == h.Primary.Addr().Unmap() {
		return nil
	}
	return h.Tuner.DisableHeartbeat(fd, id, peer)
}

// RetransmissionLimits is an [AssociationUpObserver] applying the
// configured retransmission limits to each new association. A zero limit
// is not applied.
type RetransmissionLimits struct {
	// AssociationMax is the association-level limit.
	AssociationMax uint16

	// PathMax is the per-path limit.
	PathMax uint16

	// Tuner issues the socket option calls.
	Tuner *Tuner
}

var _ AssociationUpObserver = &RetransmissionLimits{}

// OnAssociationUp implements [AssociationUpObserver].
func (r *RetransmissionLimits) OnAssociationUp(fd int, id AssocID) error {
	if r.AssociationMax > 0 {
		if err := r.Tuner.SetAssociationMaxRetransmissions(fd, id, r.AssociationMax); err != nil {
			return err
		}
	}
	if r.PathMax > 0 {
		return r.Tuner.SetPathMaxRetransmissions(fd, id, r.PathMax)
	}
	return nil
}
