// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Sink receives the payloads generated by producers.
//
// The [*Engine] type satisfies this interface.
type Sink interface {
	Send(data []byte) error
}

var _ Sink = &Engine{}

// NewPeriodicSender returns a new [*PeriodicSender].
//
// The sink argument is where to send payloads.
//
// The size argument is the payload size in bytes.
//
// The interval argument is the time between two sends.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewPeriodicSender(sink Sink, size int, interval time.Duration, logger SLogger) *PeriodicSender {
	return &PeriodicSender{
		Interval: interval,
		Logger:   logger,
		Sink:     sink,
		Size:     size,
		started:  make(chan struct{}),
	}
}

// PeriodicSender sends a keep-alive payload at a fixed interval once the
// first association is up.
//
// Register it with [*Engine.RegisterAssociationUp] and then call Run.
type PeriodicSender struct {
	// Interval is the time between two sends.
	Interval time.Duration

	// Logger is the [SLogger] to use.
	Logger SLogger

	// Sink is where to send payloads.
	Sink Sink

	// Size is the payload size in bytes.
	Size int

	once    sync.Once
	started chan struct{}
}

var _ AssociationUpObserver = &PeriodicSender{}

// OnAssociationUp implements [AssociationUpObserver].
func (ps *PeriodicSender) OnAssociationUp(fd int, id AssocID) error {
	ps.once.Do(func() {
		close(ps.started)
	})
	return nil
}

// Run waits for the first association and then sends until ctx is done,
// returning ctx.Err(). Send errors are ignored.
func (ps *PeriodicSender) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ps.started:
	}

	ticker := time.NewTicker(ps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = ps.Sink.Send(keepalivePayload(ps.Size))
		}
	}
}

// keepalivePayload returns size bytes cycling through 'A' to 'Y'.
func keepalivePayload(size int) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = 'A' + byte(i%25)
	}
	return payload
}

// NewInteractiveSender returns a new [*InteractiveSender].
//
// The sink argument is where to send lines.
//
// The input argument is where to read lines from.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewInteractiveSender(sink Sink, input io.Reader, logger SLogger) *InteractiveSender {
	return &InteractiveSender{Input: input, Logger: logger, Sink: sink}
}

// InteractiveSender sends each non-empty input line, without the line
// terminator, as one message.
type InteractiveSender struct {
	// Input is where to read lines from.
	Input io.Reader

	// Logger is the [SLogger] to use.
	Logger SLogger

	// Sink is where to send lines.
	Sink Sink
}

// Run reads and sends lines until EOF, a read error, or ctx is done.
//
// It returns nil at EOF, ctx.Err() on cancellation, and the read error
// otherwise. Send errors are ignored. A Read blocked on the input is not
// interrupted by cancellation: the lines it eventually returns are dropped.
func (is *InteractiveSender) Run(ctx context.Context) error {
	lines := make(chan []byte)
	errch := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(is.Input)
		for scanner.Scan() {
			line := bytes.Clone(scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				errch <- ctx.Err()
				return
			}
		}
		errch <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errch:
			is.Logger.Info("inputDone", slog.Any("err", err))
			return err
		case line := <-lines:
			if len(line) <= 0 {
				continue
			}
			_ = is.Sink.Send(line)
		}
	}
}
