// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"encoding/binary"
	"net/netip"
)

// Linux SCTP ABI (include/uapi/linux/sctp.h). These values describe the
// kernel's view of the socket and are decoded with explicit bounds checks.
const (
	// solSCTP is the socket option level for SCTP options.
	solSCTP = 132

	// Socket options.
	sctpRTOInfo        = 0
	sctpAssocInfo      = 1
	sctpPeerAddrParams = 9
	sctpEvents         = 11

	// sctpSndRcv is the ancillary data type carrying struct sctp_sndrcvinfo.
	sctpSndRcv = 1

	// msgNotification is the recvmsg flag marking a notification. It comes
	// from linux/sctp.h, which golang.org/x/sys/unix does not export.
	msgNotification = 0x8000

	// sppHBDisable is the spp_flags bit disabling heartbeats.
	sppHBDisable = 1 << 1

	// Address families as laid out in struct sockaddr_storage.
	afInet  = 2
	afInet6 = 10
)

// Sizes of the kernel structures handled by this package.
const (
	sockaddrStorageSize = 128
	sndRcvInfoSize      = 32
	eventSubscribeSize  = 9
	assocParamsSize     = 20
	rtoInfoSize         = 16

	// peerAddrParamsSize is the pre-4.17 struct sctp_paddrparams size,
	// which every kernel since accepts as well.
	peerAddrParamsSize = 152
)

// AssocID is the opaque association identifier assigned by the kernel.
//
// The zero value means that no association is established.
type AssocID int32

// SndRcvInfo is the subset of struct sctp_sndrcvinfo this package uses.
type SndRcvInfo struct {
	Stream     uint16
	SSN        uint16
	Flags      uint16
	PPID       uint32
	Context    uint32
	TimeToLive uint32
	TSN        uint32
	CumTSN     uint32
	AssocID    AssocID
}

func encodeSndRcvInfo(info SndRcvInfo) []byte {
	b := make([]byte, sndRcvInfoSize)
	ne := binary.NativeEndian
	ne.PutUint16(b[0:], info.Stream)
	ne.PutUint16(b[2:], info.SSN)
	ne.PutUint16(b[4:], info.Flags)
	ne.PutUint32(b[8:], info.PPID)
	ne.PutUint32(b[12:], info.Context)
	ne.PutUint32(b[16:], info.TimeToLive)
	ne.PutUint32(b[20:], info.TSN)
	ne.PutUint32(b[24:], info.CumTSN)
	ne.PutUint32(b[28:], uint32(info.AssocID))
	return b
}

func decodeSndRcvInfo(b []byte) (SndRcvInfo, bool) {
	if len(b) < sndRcvInfoSize {
		return SndRcvInfo{}, false
	}
	ne := binary.NativeEndian
	return SndRcvInfo{
		Stream:     ne.Uint16(b[0:]),
		SSN:        ne.Uint16(b[2:]),
		Flags:      ne.Uint16(b[4:]),
		PPID:       ne.Uint32(b[8:]),
		Context:    ne.Uint32(b[12:]),
		TimeToLive: ne.Uint32(b[16:]),
		TSN:        ne.Uint32(b[20:]),
		CumTSN:     ne.Uint32(b[24:]),
		AssocID:    AssocID(ne.Uint32(b[28:])),
	}, true
}

// encodeEventSubscribe returns a struct sctp_event_subscribe enabling data
// I/O, association, address, send failure, peer error, shutdown, partial
// delivery, adaptation layer, and authentication events.
func encodeEventSubscribe() []byte {
	b := make([]byte, eventSubscribeSize)
	for i := range b {
		b[i] = 1
	}
	return b
}

func encodePeerAddrParams(id AssocID, addr netip.AddrPort, pathMaxRxt uint16, flags uint32) []byte {
	b := make([]byte, peerAddrParamsSize)
	ne := binary.NativeEndian
	ne.PutUint32(b[0:], uint32(id))
	putSockaddr(b[4:4+sockaddrStorageSize], addr)
	ne.PutUint16(b[136:], pathMaxRxt)
	ne.PutUint32(b[146:], flags)
	return b
}

func encodeAssocParams(id AssocID, assocMaxRxt uint16) []byte {
	b := make([]byte, assocParamsSize)
	ne := binary.NativeEndian
	ne.PutUint32(b[0:], uint32(id))
	ne.PutUint16(b[4:], assocMaxRxt)
	return b
}

func encodeRTOInfo(id AssocID, rto RTOInfo) []byte {
	b := make([]byte, rtoInfoSize)
	ne := binary.NativeEndian
	ne.PutUint32(b[0:], uint32(id))
	ne.PutUint32(b[4:], rto.Initial)
	ne.PutUint32(b[8:], rto.Max)
	ne.PutUint32(b[12:], rto.Min)
	return b
}

// putSockaddr writes addr as a sockaddr_in or sockaddr_in6 into b, which
// must be at least 28 bytes. The zero AddrPort leaves b zeroed.
func putSockaddr(b []byte, addr netip.AddrPort) {
	if !addr.IsValid() {
		return
	}
	ip := addr.Addr()
	binary.BigEndian.PutUint16(b[2:], addr.Port())
	if ip.Is4() {
		binary.NativeEndian.PutUint16(b[0:], afInet)
		a4 := ip.As4()
		copy(b[4:8], a4[:])
		return
	}
	binary.NativeEndian.PutUint16(b[0:], afInet6)
	a16 := ip.As16()
	copy(b[8:24], a16[:])
}

// parseSockaddr reads a sockaddr_in or sockaddr_in6 from b. It returns the
// family it found and an invalid AddrPort when the family is unknown or b
// is too short.
func parseSockaddr(b []byte) (netip.AddrPort, uint16) {
	if len(b) < 2 {
		return netip.AddrPort{}, 0
	}
	family := binary.NativeEndian.Uint16(b[0:])
	switch {
	case family == afInet && len(b) >= 8:
		port := binary.BigEndian.Uint16(b[2:])
		return netip.AddrPortFrom(netip.AddrFrom4([4]byte(b[4:8])), port), family
	case family == afInet6 && len(b) >= 24:
		port := binary.BigEndian.Uint16(b[2:])
		return netip.AddrPortFrom(netip.AddrFrom16([16]byte(b[8:24])), port), family
	default:
		return netip.AddrPort{}, family
	}
}
