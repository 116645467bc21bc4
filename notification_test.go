// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"encoding/binary"
	"math/rand/v2"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotificationAssociationChange(t *testing.T) {
	n := DecodeNotification(assocChangeBlob(CommUp, 42))

	require.Equal(t, KindAssociationChange, n.Kind())
	ac := n.(*AssociationChange)
	assert.Equal(t, CommUp, ac.State)
	assert.Equal(t, AssocID(42), ac.AssocID)
	assert.Equal(t, uint16(10), ac.OutboundStreams)
	assert.Equal(t, uint16(5), ac.InboundStreams)
	assert.Equal(t, "SCTP_ASSOC_CHANGE", n.Type().String())
}

func TestDecodeNotificationPeerAddressChange(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// addr is the peer address to encode.
		addr netip.AddrPort
	}{
		{name: "IPv4 peer", addr: netip.MustParseAddrPort("192.0.2.1:9000")},
		{name: "IPv6 peer", addr: netip.MustParseAddrPort("[2001:db8::1]:9000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := DecodeNotification(paddrChangeBlob(tt.addr, AddrConfirmed, 7))

			require.Equal(t, KindPeerAddressChange, n.Kind())
			pc := n.(*PeerAddressChange)
			assert.Equal(t, tt.addr, pc.Address)
			assert.Equal(t, AddrConfirmed, pc.State)
			assert.Equal(t, AssocID(7), pc.AssocID)
		})
	}
}

func TestDecodeNotificationUnknownFamily(t *testing.T) {
	blob := paddrChangeBlob(netip.AddrPort{}, AddrAdded, 7)
	binary.NativeEndian.PutUint16(blob[8:], 99)

	pc := DecodeNotification(blob).(*PeerAddressChange)

	assert.False(t, pc.Address.IsValid())
	assert.Equal(t, uint16(99), pc.Family)
	assert.Equal(t, "[unknown family 99]", addrString(pc.Address, pc.Family))
}

func TestDecodeNotificationOtherTypes(t *testing.T) {
	header := func(typ NotificationType, size int) []byte {
		b := make([]byte, size)
		binary.NativeEndian.PutUint16(b[0:], uint16(typ))
		binary.NativeEndian.PutUint32(b[4:], uint32(size))
		return b
	}

	t.Run("remote error", func(t *testing.T) {
		b := header(TypeRemoteError, remoteErrorSize+4)
		binary.BigEndian.PutUint16(b[8:], 13)
		binary.NativeEndian.PutUint32(b[12:], 5)
		copy(b[16:], "oops")

		re := DecodeNotification(b).(*RemoteError)

		assert.Equal(t, KindOther, re.Kind())
		assert.Equal(t, uint16(13), re.Error)
		assert.Equal(t, AssocID(5), re.AssocID)
		assert.Equal(t, []byte("oops"), re.Data)
	})

	t.Run("shutdown", func(t *testing.T) {
		b := header(TypeShutdownEvent, shutdownEventSize)
		binary.NativeEndian.PutUint32(b[8:], 5)

		se := DecodeNotification(b).(*ShutdownEvent)

		assert.Equal(t, KindOther, se.Kind())
		assert.Equal(t, AssocID(5), se.AssocID)
	})

	t.Run("authentication", func(t *testing.T) {
		b := header(TypeAuthenticationEvent, authkeyEventSize)
		binary.NativeEndian.PutUint16(b[8:], 1)
		binary.NativeEndian.PutUint16(b[10:], 2)
		binary.NativeEndian.PutUint32(b[16:], 5)

		ae := DecodeNotification(b).(*AuthenticationEvent)

		assert.Equal(t, uint16(1), ae.KeyNumber)
		assert.Equal(t, uint16(2), ae.AltKeyNumber)
		assert.Equal(t, AssocID(5), ae.AssocID)
	})

	t.Run("sender dry", func(t *testing.T) {
		b := header(TypeSenderDryEvent, senderDryEventSize)
		binary.NativeEndian.PutUint32(b[8:], 5)

		sd := DecodeNotification(b).(*SenderDry)

		assert.Equal(t, AssocID(5), sd.AssocID)
	})
}

func TestDecodeNotificationMalformed(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// blob is the input.
		blob []byte

		// wantReason is the expected OtherNotification reason.
		wantReason string
	}{
		{
			name:       "empty blob",
			blob:       nil,
			wantReason: "truncated header",
		},

		{
			name:       "short header",
			blob:       assocChangeBlob(CommUp, 1)[:5],
			wantReason: "truncated header",
		},

		{
			name:       "truncated association change",
			blob:       assocChangeBlob(CommUp, 1)[:12],
			wantReason: "truncated body",
		},

		{
			name:       "truncated peer address change",
			blob:       paddrChangeBlob(netip.MustParseAddrPort("192.0.2.1:1"), AddrConfirmed, 1)[:100],
			wantReason: "truncated body",
		},

		{
			name: "unknown type",
			blob: func() []byte {
				b := assocChangeBlob(CommUp, 1)
				binary.NativeEndian.PutUint16(b, 0x9000)
				return b
			}(),
			wantReason: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := DecodeNotification(tt.blob)

			require.Equal(t, KindOther, n.Kind())
			other := n.(*OtherNotification)
			assert.Equal(t, tt.wantReason, other.Reason)
			assert.NotEmpty(t, n.Type().String())
			assert.NotNil(t, n.LogAttrs())
		})
	}
}

// No blob causes the decoder to fail.
func TestDecodeNotificationNeverPanics(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 2000 {
		b := make([]byte, rng.IntN(200))
		for i := range b {
			b[i] = byte(rng.UintN(256))
		}
		if len(b) >= 2 && rng.IntN(2) == 0 {
			binary.NativeEndian.PutUint16(b, uint16(TypeAssocChange)+uint16(rng.IntN(9)))
		}
		assert.NotPanics(t, func() {
			n := DecodeNotification(b)
			_ = n.LogAttrs()
		})
	}
}

func TestNotificationStateNames(t *testing.T) {
	assert.Equal(t, "SCTP_COMM_UP", CommUp.String())
	assert.Equal(t, "SCTP_CANT_STR_ASSOC", CantStartAssociation.String())
	assert.Equal(t, "sctp_sac_state_UNKNOWN(9)", AssocChangeState(9).String())
	assert.Equal(t, "SCTP_ADDR_CONFIRMED", AddrConfirmed.String())
	assert.Equal(t, "sctp_spc_state_UNKNOWN(-1)", PeerAddrState(-1).String())
	assert.Equal(t, "SCTP_SN_TYPE_UNKNOWN(0x1234)", NotificationType(0x1234).String())
}
