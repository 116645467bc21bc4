// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcResolver is a [Resolver] whose methods are function fields.
type funcResolver struct {
	LookupNetIPFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupPortFunc  func(ctx context.Context, network, service string) (int, error)
}

func (r *funcResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	return r.LookupNetIPFunc(ctx, network, host)
}

func (r *funcResolver) LookupPort(ctx context.Context, network, service string) (int, error) {
	return r.LookupPortFunc(ctx, network, service)
}

// NewResolveFunc populates all fields from Config and the provided logger.
func TestNewResolveFunc(t *testing.T) {
	fn := NewResolveFunc(NewConfig(), FamilyIPv4, DefaultSLogger())

	require.NotNil(t, fn)
	assert.Equal(t, FamilyIPv4, fn.Family)
	assert.NotNil(t, fn.ErrClassifier)
	assert.NotNil(t, fn.Logger)
	assert.NotNil(t, fn.Resolver)
	assert.NotNil(t, fn.TimeNow)
}

func TestResolveFunc(t *testing.T) {
	resolver := &funcResolver{
		LookupNetIPFunc: func(ctx context.Context, network, host string) ([]netip.Addr, error) {
			switch host {
			case "dual.example":
				return []netip.Addr{
					netip.MustParseAddr("2001:db8::1"),
					netip.MustParseAddr("::ffff:192.0.2.1"),
				}, nil
			case "v6only.example":
				return []netip.Addr{netip.MustParseAddr("2001:db8::1")}, nil
			default:
				return nil, errors.New("no such host")
			}
		},
		LookupPortFunc: func(ctx context.Context, network, service string) (int, error) {
			if service == "discard" {
				return 9, nil
			}
			return 0, errors.New("unknown service")
		},
	}

	tests := []struct {
		// name describes what this test case verifies.
		name string

		// family is the family to resolve for.
		family Family

		// input is the host and port to resolve.
		input HostPort

		// want is the expected address.
		want netip.AddrPort

		// wantErr indicates whether we expect an error.
		wantErr bool
	}{
		{
			name:   "IPv4 passive wildcard",
			family: FamilyIPv4,
			input:  HostPort{Host: "", Port: "9000", Passive: true},
			want:   netip.MustParseAddrPort("0.0.0.0:9000"),
		},

		{
			name:   "IPv6 passive wildcard",
			family: FamilyIPv6,
			input:  HostPort{Port: "9000", Passive: true},
			want:   netip.MustParseAddrPort("[::]:9000"),
		},

		{
			name:   "IPv4 active loopback",
			family: FamilyIPv4,
			input:  HostPort{Port: "9000"},
			want:   netip.MustParseAddrPort("127.0.0.1:9000"),
		},

		{
			name:   "empty port is zero",
			family: FamilyIPv6,
			input:  HostPort{},
			want:   netip.MustParseAddrPort("[::1]:0"),
		},

		{
			name:   "service name",
			family: FamilyIPv4,
			input:  HostPort{Port: "discard", Passive: true},
			want:   netip.MustParseAddrPort("0.0.0.0:9"),
		},

		{
			name:   "first address of the family unmapped",
			family: FamilyIPv4,
			input:  HostPort{Host: "dual.example", Port: "80"},
			want:   netip.MustParseAddrPort("192.0.2.1:80"),
		},

		{
			name:    "no address of the family",
			family:  FamilyIPv4,
			input:   HostPort{Host: "v6only.example", Port: "80"},
			wantErr: true,
		},

		{
			name:    "lookup failure",
			family:  FamilyIPv4,
			input:   HostPort{Host: "nx.example", Port: "80"},
			wantErr: true,
		},

		{
			name:    "unknown service",
			family:  FamilyIPv4,
			input:   HostPort{Port: "nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Resolver = resolver
			logger, records := newCapturingLogger()
			fn := NewResolveFunc(cfg, tt.family, logger)

			got, err := fn.Call(context.Background(), tt.input)

			assert.Equal(t, []string{"resolveStart", "resolveDone"}, messagesOf(*records))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrResolution)
				assert.False(t, got.IsValid())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
