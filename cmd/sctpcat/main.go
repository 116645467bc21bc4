// SPDX-License-Identifier: GPL-3.0-or-later

// Command sctpcat opens an SCTP endpoint, logs every message and
// notification it receives, and sends the lines read from stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bassosimone/sctpcat"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Exit codes.
const (
	exitGeneral = 1
	exitUsage   = 2
)

// usageError marks errors caused by an invalid command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

var errFmt = color.New(color.FgRed, color.Bold).SprintFunc()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(cmd, err))
}

// exitCode prints err and maps it to the process exit status.
func exitCode(cmd *cobra.Command, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errFmt("sctpcat:"), err.Error())
	var opErr *sctpcat.OpError
	if errors.As(err, &opErr) && opErr.Site != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "  at %s\n", opErr.Site)
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "usage: %s\n", cmd.UseLine())
		return exitUsage
	}
	return exitGeneral
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := defaultOptions()
	var configPath string
	var printConfig bool

	cmd := &cobra.Command{
		Use:   "sctpcat [OPTIONS] [HOST][:]PORT",
		Short: "SCTP diagnostic endpoint",
		Long: `sctpcat opens a one-to-many SCTP socket, either listening or connecting,
logs every data message and notification it receives, and sends each line
read from stdin to the current association.

Options may also be read from a YAML file passed with --config. Flags given
on the command line take precedence over the file.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := mergeConfigFile(cmd.Flags(), configPath); err != nil {
					return &usageError{err}
				}
			}
			host, port, err := parseHostPort(args, opts.Listen)
			if err != nil {
				return &usageError{err}
			}
			opts.Host, opts.Port = host, port
			if err := opts.validate(); err != nil {
				return &usageError{err}
			}
			if printConfig {
				return printOptions(cmd.OutOrStdout(), opts)
			}
			logger := newLogger(cmd.ErrOrStderr(), opts)
			return run(cmd.Context(), opts, stdin, logger)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	addFlags(cmd.Flags(), opts)
	cmd.Flags().StringVar(&configPath, "config", "", "read options from a YAML file")
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "print the effective options as YAML and exit")
	return cmd
}

// newLogger returns the structured logger writing to w.
func newLogger(w io.Writer, opts *Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, hopts)
	if opts.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	}
	return slog.New(handler).With(slog.String("spanID", sctpcat.NewSpanID()))
}

func printOptions(w io.Writer, opts *Options) error {
	out, err := yaml.Marshal(opts)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
