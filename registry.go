// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import "net/netip"

// AssociationUpObserver is notified when an association reaches SCTP_COMM_UP.
//
// Observers run synchronously inside the [*Engine] drain pass while the
// engine lock is held: they must not call [*Engine.Send]. A returned error
// stops the drain pass and propagates out of [*Engine.ReceiveLoop].
type AssociationUpObserver interface {
	OnAssociationUp(fd int, id AssocID) error
}

// AssociationUpFunc adapts a function to the [AssociationUpObserver] interface.
type AssociationUpFunc func(fd int, id AssocID) error

var _ AssociationUpObserver = AssociationUpFunc(nil)

// OnAssociationUp implements [AssociationUpObserver].
func (f AssociationUpFunc) OnAssociationUp(fd int, id AssocID) error {
	return f(fd, id)
}

// PeerAddressConfirmedObserver is notified when a peer address reaches
// SCTP_ADDR_CONFIRMED. The same rules as [AssociationUpObserver] apply.
type PeerAddressConfirmedObserver interface {
	OnPeerAddressConfirmed(fd int, id AssocID, peer netip.AddrPort) error
}

// PeerAddressConfirmedFunc adapts a function to the
// [PeerAddressConfirmedObserver] interface.
type PeerAddressConfirmedFunc func(fd int, id AssocID, peer netip.AddrPort) error

var _ PeerAddressConfirmedObserver = PeerAddressConfirmedFunc(nil)

// OnPeerAddressConfirmed implements [PeerAddressConfirmedObserver].
func (f PeerAddressConfirmedFunc) OnPeerAddressConfirmed(fd int, id AssocID, peer netip.AddrPort) error {
	return f(fd, id, peer)
}

// CallbackRegistry holds the lifecycle observers in registration order.
//
// The zero value is ready to use. It is not safe for concurrent use; the
// [*Engine] guards it with its own lock.
type CallbackRegistry struct {
	assocUp       []AssociationUpObserver
	peerConfirmed []PeerAddressConfirmedObserver
}

// AddAssociationUp appends an [AssociationUpObserver].
func (r *CallbackRegistry) AddAssociationUp(obs AssociationUpObserver) {
	r.assocUp = append(r.assocUp, obs)
}

// AddPeerAddressConfirmed appends a [PeerAddressConfirmedObserver].
func (r *CallbackRegistry) AddPeerAddressConfirmed(obs PeerAddressConfirmedObserver) {
	r.peerConfirmed = append(r.peerConfirmed, obs)
}

// notifyAssociationUp calls every observer in order, stopping at the
// first error.
func (r *CallbackRegistry) notifyAssociationUp(fd int, id AssocID) error {
	for _, obs := range r.assocUp {
		if err := obs.OnAssociationUp(fd, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *CallbackRegistry) notifyPeerAddressConfirmed(fd int, id AssocID, peer netip.AddrPort) error {
	for _, obs := range r.peerConfirmed {
		if err := obs.OnPeerAddressConfirmed(fd, id, peer); err != nil {
			return err
		}
	}
	return nil
}
