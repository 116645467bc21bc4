// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/netip"
)

// NotificationKind classifies a [Notification] for dispatch.
type NotificationKind int

const (
	// KindOther is every notification that does not drive association state.
	KindOther NotificationKind = iota

	// KindAssociationChange is an SCTP_ASSOC_CHANGE notification.
	KindAssociationChange

	// KindPeerAddressChange is an SCTP_PEER_ADDR_CHANGE notification.
	KindPeerAddressChange
)

// NotificationType is the sn_type discriminant of a notification.
type NotificationType uint16

const (
	TypeAssocChange          NotificationType = 0x8001
	TypePeerAddrChange       NotificationType = 0x8002
	TypeSendFailed           NotificationType = 0x8003
	TypeRemoteError          NotificationType = 0x8004
	TypeShutdownEvent        NotificationType = 0x8005
	TypePartialDeliveryEvent NotificationType = 0x8006
	TypeAdaptationIndication NotificationType = 0x8007
	TypeAuthenticationEvent  NotificationType = 0x8008
	TypeSenderDryEvent       NotificationType = 0x8009
)

var notificationTypeNames = map[NotificationType]string{
	TypeAssocChange:          "SCTP_ASSOC_CHANGE",
	TypePeerAddrChange:       "SCTP_PEER_ADDR_CHANGE",
	TypeSendFailed:           "SCTP_SEND_FAILED",
	TypeRemoteError:          "SCTP_REMOTE_ERROR",
	TypeShutdownEvent:        "SCTP_SHUTDOWN_EVENT",
	TypePartialDeliveryEvent: "SCTP_PARTIAL_DELIVERY_EVENT",
	TypeAdaptationIndication: "SCTP_ADAPTATION_INDICATION",
	TypeAuthenticationEvent:  "SCTP_AUTHENTICATION_EVENT",
	TypeSenderDryEvent:       "SCTP_SENDER_DRY_EVENT",
}

// String returns the kernel name of the type.
func (t NotificationType) String() string {
	if name, found := notificationTypeNames[t]; found {
		return name
	}
	return fmt.Sprintf("SCTP_SN_TYPE_UNKNOWN(0x%04x)", uint16(t))
}

// AssocChangeState is the sac_state of an association change.
type AssocChangeState uint16

const (
	CommUp AssocChangeState = iota
	CommLost
	Restart
	ShutdownComplete
	CantStartAssociation
)

// String returns the kernel name of the state.
func (s AssocChangeState) String() string {
	switch s {
	case CommUp:
		return "SCTP_COMM_UP"
	case CommLost:
		return "SCTP_COMM_LOST"
	case Restart:
		return "SCTP_RESTART"
	case ShutdownComplete:
		return "SCTP_SHUTDOWN_COMP"
	case CantStartAssociation:
		return "SCTP_CANT_STR_ASSOC"
	default:
		return fmt.Sprintf("sctp_sac_state_UNKNOWN(%d)", uint16(s))
	}
}

// PeerAddrState is the spc_state of a peer address change.
type PeerAddrState int32

const (
	AddrAvailable PeerAddrState = iota
	AddrUnreachable
	AddrRemoved
	AddrAdded
	AddrMadePrimary
	AddrConfirmed
)

// String returns the kernel name of the state.
func (s PeerAddrState) String() string {
	switch s {
	case AddrAvailable:
		return "SCTP_ADDR_AVAILABLE"
	case AddrUnreachable:
		return "SCTP_ADDR_UNREACHABLE"
	case AddrRemoved:
		return "SCTP_ADDR_REMOVED"
	case AddrAdded:
		return "SCTP_ADDR_ADDED"
	case AddrMadePrimary:
		return "SCTP_ADDR_MADE_PRIM"
	case AddrConfirmed:
		return "SCTP_ADDR_CONFIRMED"
	default:
		return fmt.Sprintf("sctp_spc_state_UNKNOWN(%d)", int32(s))
	}
}

// Notification is a decoded SCTP notification.
//
// The concrete types are [*AssociationChange], [*PeerAddressChange],
// [*SendFailed], [*RemoteError], [*ShutdownEvent], [*PartialDelivery],
// [*AdaptationIndication], [*AuthenticationEvent], [*SenderDry], and
// [*OtherNotification]. Only the first two drive association state.
type Notification interface {
	// Kind returns the dispatch class.
	Kind() NotificationKind

	// Type returns the sn_type discriminant.
	Type() NotificationType

	// LogAttrs returns the fields to log.
	LogAttrs() []any
}

// AssociationChange reports a change in the state of an association.
type AssociationChange struct {
	Flags           uint16
	State           AssocChangeState
	Error           uint16
	OutboundStreams uint16
	InboundStreams  uint16
	AssocID         AssocID
}

func (*AssociationChange) Kind() NotificationKind { return KindAssociationChange }
func (*AssociationChange) Type() NotificationType { return TypeAssocChange }

func (n *AssociationChange) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.String("state", n.State.String()),
		slog.Int("error", int(n.Error)),
		slog.Int("outboundStreams", int(n.OutboundStreams)),
		slog.Int("inboundStreams", int(n.InboundStreams)),
	}
}

// PeerAddressChange reports a change in the state of a peer address.
type PeerAddressChange struct {
	Flags   uint16
	Address netip.AddrPort

	// Family is the raw address family, useful when Address is invalid
	// because the kernel reported a family this package does not know.
	Family  uint16
	State   PeerAddrState
	Error   int32
	AssocID AssocID
}

func (*PeerAddressChange) Kind() NotificationKind { return KindPeerAddressChange }
func (*PeerAddressChange) Type() NotificationType { return TypePeerAddrChange }

func (n *PeerAddressChange) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.String("addr", addrString(n.Address, n.Family)),
		slog.String("state", n.State.String()),
		slog.Int("error", int(n.Error)),
		slog.Int("flags", int(n.Flags)),
	}
}

// SendFailed reports a message the kernel could not deliver.
type SendFailed struct {
	Flags   uint16
	Error   uint32
	Info    SndRcvInfo
	AssocID AssocID
	Data    []byte
}

func (*SendFailed) Kind() NotificationKind { return KindOther }
func (*SendFailed) Type() NotificationType { return TypeSendFailed }

func (n *SendFailed) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.Int("error", int(n.Error)),
		slog.Int("flags", int(n.Flags)),
		slog.Int("stream", int(n.Info.Stream)),
		slog.Int("undeliveredBytes", len(n.Data)),
	}
}

// RemoteError reports an operational error received from the peer.
type RemoteError struct {
	Flags   uint16
	Error   uint16
	AssocID AssocID
	Data    []byte
}

func (*RemoteError) Kind() NotificationKind { return KindOther }
func (*RemoteError) Type() NotificationType { return TypeRemoteError }

func (n *RemoteError) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.Int("error", int(n.Error)),
		slog.Int("errorBytes", len(n.Data)),
	}
}

// ShutdownEvent reports that the peer started a graceful shutdown.
type ShutdownEvent struct {
	Flags   uint16
	AssocID AssocID
}

func (*ShutdownEvent) Kind() NotificationKind { return KindOther }
func (*ShutdownEvent) Type() NotificationType { return TypeShutdownEvent }

func (n *ShutdownEvent) LogAttrs() []any {
	return []any{slog.Int("assocID", int(n.AssocID))}
}

// PartialDelivery reports an aborted partial delivery.
type PartialDelivery struct {
	Flags      uint16
	Indication uint32
	AssocID    AssocID
}

func (*PartialDelivery) Kind() NotificationKind { return KindOther }
func (*PartialDelivery) Type() NotificationType { return TypePartialDeliveryEvent }

func (n *PartialDelivery) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.Int("indication", int(n.Indication)),
	}
}

// AdaptationIndication carries the peer's adaptation layer indication.
type AdaptationIndication struct {
	Flags      uint16
	Indication uint32
	AssocID    AssocID
}

func (*AdaptationIndication) Kind() NotificationKind { return KindOther }
func (*AdaptationIndication) Type() NotificationType { return TypeAdaptationIndication }

func (n *AdaptationIndication) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.Int("indication", int(n.Indication)),
	}
}

// AuthenticationEvent reports an SCTP-AUTH key event.
type AuthenticationEvent struct {
	Flags        uint16
	KeyNumber    uint16
	AltKeyNumber uint16
	Indication   uint32
	AssocID      AssocID
}

func (*AuthenticationEvent) Kind() NotificationKind { return KindOther }
func (*AuthenticationEvent) Type() NotificationType { return TypeAuthenticationEvent }

func (n *AuthenticationEvent) LogAttrs() []any {
	return []any{
		slog.Int("assocID", int(n.AssocID)),
		slog.Int("keyNumber", int(n.KeyNumber)),
		slog.Int("altKeyNumber", int(n.AltKeyNumber)),
		slog.Int("indication", int(n.Indication)),
	}
}

// SenderDry reports that the kernel has no user data left to send.
type SenderDry struct {
	Flags   uint16
	AssocID AssocID
}

func (*SenderDry) Kind() NotificationKind { return KindOther }
func (*SenderDry) Type() NotificationType { return TypeSenderDryEvent }

func (n *SenderDry) LogAttrs() []any {
	return []any{slog.Int("assocID", int(n.AssocID))}
}

// OtherNotification is a notification with an unknown discriminant or
// one too short to decode.
type OtherNotification struct {
	RawType NotificationType
	Length  uint32
	Reason  string
}

func (*OtherNotification) Kind() NotificationKind   { return KindOther }
func (n *OtherNotification) Type() NotificationType { return n.RawType }

func (n *OtherNotification) LogAttrs() []any {
	return []any{
		slog.Int("length", int(n.Length)),
		slog.String("reason", n.Reason),
	}
}

// Offsets and minimum sizes of the notification structures.
const (
	snHeaderSize       = 8
	assocChangeSize    = 20
	paddrChangeSize    = 148
	sendFailedSize     = 48
	remoteErrorSize    = 16
	shutdownEventSize  = 12
	pdapiEventSize     = 16
	adaptationSize     = 16
	authkeyEventSize   = 20
	senderDryEventSize = 12
)

// DecodeNotification decodes a notification blob returned by recvmsg with
// the MSG_NOTIFICATION flag set. It never fails: unknown or truncated blobs
// become an [*OtherNotification].
func DecodeNotification(b []byte) Notification {
	if len(b) < snHeaderSize {
		var raw NotificationType
		if len(b) >= 2 {
			raw = NotificationType(binary.NativeEndian.Uint16(b))
		}
		return &OtherNotification{RawType: raw, Length: uint32(len(b)), Reason: "truncated header"}
	}
	ne := binary.NativeEndian
	typ := NotificationType(ne.Uint16(b[0:]))
	flags := ne.Uint16(b[2:])
	length := ne.Uint32(b[4:])

	need, known := notificationSizes[typ]
	if !known {
		return &OtherNotification{RawType: typ, Length: length, Reason: "unknown type"}
	}
	if len(b) < need {
		return &OtherNotification{RawType: typ, Length: length, Reason: "truncated body"}
	}

	switch typ {
	case TypeAssocChange:
		return &AssociationChange{
			Flags:           flags,
			State:           AssocChangeState(ne.Uint16(b[8:])),
			Error:           ne.Uint16(b[10:]),
			OutboundStreams: ne.Uint16(b[12:]),
			InboundStreams:  ne.Uint16(b[14:]),
			AssocID:         AssocID(ne.Uint32(b[16:])),
		}

	case TypePeerAddrChange:
		addr, family := parseSockaddr(b[8 : 8+sockaddrStorageSize])
		return &PeerAddressChange{
			Flags:   flags,
			Address: addr,
			Family:  family,
			State:   PeerAddrState(ne.Uint32(b[136:])),
			Error:   int32(ne.Uint32(b[140:])),
			AssocID: AssocID(ne.Uint32(b[144:])),
		}

	case TypeSendFailed:
		info, _ := decodeSndRcvInfo(b[12:44])
		return &SendFailed{
			Flags:   flags,
			Error:   ne.Uint32(b[8:]),
			Info:    info,
			AssocID: AssocID(ne.Uint32(b[44:])),
			Data:    trailer(b, sendFailedSize, length),
		}

	case TypeRemoteError:
		return &RemoteError{
			Flags:   flags,
			Error:   binary.BigEndian.Uint16(b[8:]),
			AssocID: AssocID(ne.Uint32(b[12:])),
			Data:    trailer(b, remoteErrorSize, length),
		}

	case TypeShutdownEvent:
		return &ShutdownEvent{Flags: flags, AssocID: AssocID(ne.Uint32(b[8:]))}

	case TypePartialDeliveryEvent:
		return &PartialDelivery{
			Flags:      flags,
			Indication: ne.Uint32(b[8:]),
			AssocID:    AssocID(ne.Uint32(b[12:])),
		}

	case TypeAdaptationIndication:
		return &AdaptationIndication{
			Flags:      flags,
			Indication: ne.Uint32(b[8:]),
			AssocID:    AssocID(ne.Uint32(b[12:])),
		}

	case TypeAuthenticationEvent:
		return &AuthenticationEvent{
			Flags:        flags,
			KeyNumber:    ne.Uint16(b[8:]),
			AltKeyNumber: ne.Uint16(b[10:]),
			Indication:   ne.Uint32(b[12:]),
			AssocID:      AssocID(ne.Uint32(b[16:])),
		}

	default: // TypeSenderDryEvent
		return &SenderDry{Flags: flags, AssocID: AssocID(ne.Uint32(b[8:]))}
	}
}

var notificationSizes = map[NotificationType]int{
	TypeAssocChange:          assocChangeSize,
	TypePeerAddrChange:       paddrChangeSize,
	TypeSendFailed:           sendFailedSize,
	TypeRemoteError:          remoteErrorSize,
	TypeShutdownEvent:        shutdownEventSize,
	TypePartialDeliveryEvent: pdapiEventSize,
	TypeAdaptationIndication: adaptationSize,
	TypeAuthenticationEvent:  authkeyEventSize,
	TypeSenderDryEvent:       senderDryEventSize,
}

// trailer returns the variable-length data following a fixed header,
// bounded by both the blob and the length the kernel reported.
func trailer(b []byte, offset int, length uint32) []byte {
	end := len(b)
	if int64(length) < int64(end) {
		end = int(length)
	}
	if end <= offset {
		return nil
	}
	return b[offset:end]
}

func addrString(addr netip.AddrPort, family uint16) string {
	if !addr.IsValid() {
		return fmt.Sprintf("[unknown family %d]", family)
	}
	return addr.String()
}
