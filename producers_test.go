// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcSink is a [Sink] whose Send is a function field.
type funcSink struct {
	SendFunc func(data []byte) error
}

func (s *funcSink) Send(data []byte) error {
	return s.SendFunc(data)
}

func TestKeepalivePayload(t *testing.T) {
	payload := keepalivePayload(30)

	require.Len(t, payload, 30)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYABCDE", string(payload))
}

func TestPeriodicSender(t *testing.T) {
	t.Run("waits for the first association", func(t *testing.T) {
		sink := &funcSink{SendFunc: func(data []byte) error {
			t.Fatal("should not send")
			return nil
		}}
		sender := NewPeriodicSender(sink, 10, time.Millisecond, DefaultSLogger())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		require.ErrorIs(t, sender.Run(ctx), context.DeadlineExceeded)
	})

	t.Run("sends after association up and ignores errors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var (
			mu    sync.Mutex
			sends [][]byte
		)
		sink := &funcSink{SendFunc: func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			sends = append(sends, data)
			if len(sends) >= 3 {
				cancel()
			}
			return errors.New("send failed")
		}}
		sender := NewPeriodicSender(sink, 4, time.Millisecond, DefaultSLogger())
		require.NoError(t, sender.OnAssociationUp(3, 1))
		require.NoError(t, sender.OnAssociationUp(3, 2))

		require.ErrorIs(t, sender.Run(ctx), context.Canceled)

		mu.Lock()
		defer mu.Unlock()
		require.GreaterOrEqual(t, len(sends), 3)
		assert.Equal(t, []byte("ABCD"), sends[0])
	})
}

func TestInteractiveSender(t *testing.T) {
	t.Run("sends non-empty lines until EOF", func(t *testing.T) {
		var sends []string
		sink := &funcSink{SendFunc: func(data []byte) error {
			sends = append(sends, string(data))
			return errors.New("ignored")
		}}
		input := strings.NewReader("hello\n\nworld\r\nlast")
		sender := NewInteractiveSender(sink, input, DefaultSLogger())

		require.NoError(t, sender.Run(context.Background()))

		assert.Equal(t, []string{"hello", "world", "last"}, sends)
	})

	t.Run("read error", func(t *testing.T) {
		wantErr := errors.New("read failed")
		sink := &funcSink{SendFunc: func(data []byte) error { return nil }}
		sender := NewInteractiveSender(sink, iotest.ErrReader(wantErr), DefaultSLogger())

		require.ErrorIs(t, sender.Run(context.Background()), wantErr)
	})

	t.Run("cancellation", func(t *testing.T) {
		sink := &funcSink{SendFunc: func(data []byte) error { return nil }}
		reader, writer := io.Pipe()
		defer writer.Close()
		sender := NewInteractiveSender(sink, reader, DefaultSLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, sender.Run(ctx), context.Canceled)
	})
}
