// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"errors"
	"net/netip"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose2(t *testing.T) {
	t.Run("success path", func(t *testing.T) {
		op1 := FuncAdapter[int, string](func(ctx context.Context, n int) (string, error) {
			return "hello", nil
		})
		op2 := FuncAdapter[string, int](func(ctx context.Context, s string) (int, error) {
			return len(s), nil
		})

		result, err := Compose2[int, string, int](op1, op2).Call(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, 5, result)
	})

	t.Run("first operation fails", func(t *testing.T) {
		wantErr := errors.New("op1 failed")
		op1 := FuncAdapter[int, string](func(ctx context.Context, n int) (string, error) {
			return "", wantErr
		})
		op2 := FuncAdapter[string, int](func(ctx context.Context, s string) (int, error) {
			t.Fatal("op2 should not be called")
			return 0, nil
		})

		_, err := Compose2[int, string, int](op1, op2).Call(context.Background(), 42)

		require.ErrorIs(t, err, wantErr)
	})
}

func TestCompose3(t *testing.T) {
	op1 := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) { return n + 1, nil })
	op2 := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) { return n * 2, nil })
	op3 := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) { return n - 3, nil })

	result, err := Compose3[int, int, int, int](op1, op2, op3).Call(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 9, result)
}

// The listening setup pipeline resolves, opens, binds, subscribes, and listens.
func TestCompose4ListenPipeline(t *testing.T) {
	var (
		bound    netip.AddrPort
		listened bool
	)
	sockets := &funcSockets{
		BindFunc: func(fd int, addr netip.AddrPort) error {
			bound = addr
			return nil
		},
		ListenFunc: func(fd int, backlog int) error {
			listened = true
			return nil
		},
	}
	cfg := newTestConfig(sockets, nil)
	logger, records := newCapturingLogger()

	pipeline := Compose4[Unit, HostPort, netip.AddrPort, *Endpoint, *Endpoint](
		ConstFunc(HostPort{Port: "9000", Passive: true}),
		NewResolveFunc(cfg, FamilyIPv4, logger),
		NewOpenEndpointFunc(cfg, FamilyIPv4, logger),
		NewListenFunc(cfg, logger),
	)
	ep, err := pipeline.Call(context.Background(), Unit{})

	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, netip.MustParseAddrPort("0.0.0.0:9000"), bound)
	assert.True(t, listened)
	assert.Equal(t, []string{
		"resolveStart", "resolveDone",
		"socketStart", "bindStart", "bindDone", "subscribeDone", "socketDone",
		"listenDone",
	}, messagesOf(*records))
}

func TestConstFunc(t *testing.T) {
	result, err := ConstFunc(42).Call(context.Background(), Unit{})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

// A failing connect stage closes the endpoint created by the open stage.
func TestCompose4ConnectPipelineFailure(t *testing.T) {
	var closed int
	sockets := &funcSockets{
		ConnectFunc: func(fd int, addr netip.AddrPort) error { return syscall.ENETUNREACH },
		CloseFunc:   func(fd int) error { closed++; return nil },
	}
	cfg := newTestConfig(sockets, nil)
	configure := FuncAdapter[*Endpoint, *Endpoint](func(ctx context.Context, ep *Endpoint) (*Endpoint, error) {
		return ep, nil
	})

	pipeline := Compose4[Unit, netip.AddrPort, *Endpoint, *Endpoint, *Endpoint](
		ConstFunc(netip.AddrPort{}),
		NewOpenEndpointFunc(cfg, FamilyIPv4, DefaultSLogger()),
		configure,
		NewConnectFunc(cfg, netip.MustParseAddrPort("192.0.2.1:9000"), DefaultSLogger()),
	)
	ep, err := pipeline.Call(context.Background(), Unit{})

	require.ErrorIs(t, err, ErrConnect)
	require.ErrorIs(t, err, syscall.ENETUNREACH)
	assert.Nil(t, ep)
	assert.Equal(t, 1, closed)
}
