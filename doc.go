// SPDX-License-Identifier: GPL-3.0-or-later

// Package sctpcat exercises SCTP associations between two endpoints and
// logs everything the kernel reports about them.
//
// # Setup
//
// Setup is a pipeline of [Func] stages composed with [Compose2] and
// friends. The listening side is:
//
//	Compose4(ConstFunc(hostPort), resolveOp, openOp, listenOp)
//
// and the connecting side replaces the listen stage with [*ConnectFunc],
// resolving the local and the remote address independently. The stages are:
//
//   - [ResolveFunc]: host and service lookup for one address family, using
//     the system resolver or a [*DNSResolver] querying an explicit server
//   - [OpenEndpointFunc]: non-blocking one-to-many socket, optional bind,
//     and subscription to every notification class
//   - [ListenFunc]: passive open
//   - [ConnectFunc]: active open (completion is reported asynchronously)
//
// A stage receiving an [*Endpoint] closes it when it fails.
//
// # Reception
//
// [*Engine] owns the association state. [*Engine.ReceiveLoop] waits for
// readability with epoll, drains the socket until EAGAIN under a single
// lock, decodes notifications with [DecodeNotification], and invokes the
// registered [AssociationUpObserver] and [PeerAddressConfirmedObserver]
// values in registration order. [*Engine.Send] takes the same lock, so it
// never observes a half-processed drain pass.
//
// # Producers and tuning
//
// [*PeriodicSender] and [*InteractiveSender] call [*Engine.Send] from
// their own goroutines. [*Tuner] sets heartbeat, retransmission, and RTO
// parameters; [*HeartbeatDisabler] and [*RetransmissionLimits] adapt it to
// the observer interfaces.
//
// # Errors and logging
//
// Every fallible operation returns an [*OpError] whose Kind is one of the
// Err* sentinels, so callers decide with [errors.Is] what is fatal. Send
// failures are logged and returned as [ErrSend] and should be treated as
// continuable. All events are emitted through an [SLogger] following the
// Start/Done span convention, with errors classified by [ErrClassifier].
//
// Only Linux provides SCTP sockets; elsewhere [DefaultSockets] returns an
// implementation failing with [ErrNotSupported].
package sctpcat
