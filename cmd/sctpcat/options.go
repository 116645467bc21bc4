// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/bassosimone/sctpcat"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Options is the finished configuration consumed by [run].
type Options struct {
	AssocMaxRetrans uint16 `yaml:"assoc_max_retrans"`
	Debug           bool   `yaml:"debug"`
	DNSServer       string `yaml:"dns_server"`
	IPv6            bool   `yaml:"ipv6"`
	Listen          bool   `yaml:"listen"`
	LocalPort       string `yaml:"local_port"`
	LogFormat       string `yaml:"log_format"`
	NoHBOnSecondary bool   `yaml:"no_hb_on_secondary"`
	PathMaxRetrans  uint16 `yaml:"path_max_retrans"`
	PingBytes       int    `yaml:"ping_bytes"`
	PingInterval    int    `yaml:"ping_interval"`
	RTOInitial      uint32 `yaml:"rto_initial"`
	RTOMax          uint32 `yaml:"rto_max"`
	RTOMin          uint32 `yaml:"rto_min"`
	Ticks           bool   `yaml:"ticks"`

	// Host and Port come from the positional arguments.
	Host string `yaml:"host,omitempty"`
	Port string `yaml:"port,omitempty"`
}

// defaultPingBytes is the size of the keep-alive payload.
const defaultPingBytes = 300

func defaultOptions() *Options {
	return &Options{
		LogFormat: "text",
		PingBytes: defaultPingBytes,
	}
}

// addFlags binds the command line flags to opts.
func addFlags(fs *pflag.FlagSet, opts *Options) {
	fs.Uint16Var(&opts.AssocMaxRetrans, "assoc-max-retrans", opts.AssocMaxRetrans,
		"association max retransmissions (0 keeps the kernel value)")
	fs.BoolVar(&opts.Debug, "debug", opts.Debug, "log per-message details")
	fs.StringVar(&opts.DNSServer, "dns-server", opts.DNSServer,
		"resolve hosts using udp://IP:PORT, tcp://IP:PORT or https://IP:PORT instead of the system resolver")
	fs.BoolVarP(&opts.IPv6, "ipv6", "6", opts.IPv6, "use IPv6")
	fs.BoolVarP(&opts.Listen, "listen", "l", opts.Listen, "listen for incoming associations")
	fs.StringVar(&opts.LocalPort, "local-port", opts.LocalPort, "local port to bind when connecting")
	fs.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "log format: text or json")
	fs.BoolVar(&opts.NoHBOnSecondary, "no-hb-on-secondary", opts.NoHBOnSecondary,
		"disable heartbeats on confirmed secondary paths")
	fs.Uint16Var(&opts.PathMaxRetrans, "path-max-retrans", opts.PathMaxRetrans,
		"path max retransmissions (0 keeps the kernel value)")
	fs.IntVar(&opts.PingBytes, "ping-bytes", opts.PingBytes, "keep-alive payload size")
	fs.IntVar(&opts.PingInterval, "ping-interval", opts.PingInterval,
		"keep-alive interval in milliseconds (0 disables keep-alives)")
	fs.Uint32Var(&opts.RTOInitial, "rto-initial", opts.RTOInitial, "initial RTO in milliseconds")
	fs.Uint32Var(&opts.RTOMax, "rto-max", opts.RTOMax, "maximum RTO in milliseconds")
	fs.Uint32Var(&opts.RTOMin, "rto-min", opts.RTOMin, "minimum RTO in milliseconds")
	fs.BoolVar(&opts.Ticks, "ticks", opts.Ticks, "log a tick whenever the receive loop times out")
}

// mergeConfigFile applies the values in the YAML file at path to every
// flag the user did not set explicitly. Keys are flag names with
// underscores in place of dashes.
func mergeConfigFile(fs *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for key, value := range values {
		flag := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil || !isOptionFlag(flag) {
			return fmt.Errorf("%s: unknown option %q", path, key)
		}
		if value == nil {
			return fmt.Errorf("%s: option %q has no value", path, key)
		}
		if flag.Changed {
			continue
		}
		if err := flag.Value.Set(fmt.Sprint(value)); err != nil {
			return fmt.Errorf("%s: option %q: %w", path, key, err)
		}
	}
	return nil
}

// isOptionFlag excludes the flags that only make sense on the command line.
func isOptionFlag(flag *pflag.Flag) bool {
	switch flag.Name {
	case "config", "help", "print-config":
		return false
	default:
		return true
	}
}

// parseHostPort interprets the positional arguments.
//
// Two arguments are HOST and PORT. A single argument is PORT when
// listening, or a HOST:PORT pair. An empty host means the wildcard
// address when listening and the loopback address otherwise.
func parseHostPort(args []string, listen bool) (host, port string, err error) {
	switch {
	case len(args) <= 0:
		return "", "", errors.New("need a host-port argument")
	case len(args) > 2:
		return "", "", errors.New("too many host-port elements")
	case len(args) == 2:
		return args[0], args[1], nil
	}
	if h, p, err := net.SplitHostPort(args[0]); err == nil {
		return h, p, nil
	}
	if !listen {
		return "", "", errors.New("port argument required to connect to remote host")
	}
	return "", args[0], nil
}

// validate checks the cross-field constraints not covered by flag parsing.
func (opts *Options) validate() error {
	if opts.DNSServer != "" {
		if _, _, err := sctpcat.ParseDNSServer(opts.DNSServer); err != nil {
			return fmt.Errorf("invalid --dns-server: %w", err)
		}
	}
	switch opts.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --log-format %q: want text or json", opts.LogFormat)
	}
	if opts.PingBytes <= 0 {
		return fmt.Errorf("invalid --ping-bytes %d: must be positive", opts.PingBytes)
	}
	if opts.PingInterval < 0 {
		return fmt.Errorf("invalid --ping-interval %d: must not be negative", opts.PingInterval)
	}
	if opts.Port == "" {
		return errors.New("empty port")
	}
	return nil
}

// family returns the address family selected by the options.
func (opts *Options) family() sctpcat.Family {
	if opts.IPv6 {
		return sctpcat.FamilyIPv6
	}
	return sctpcat.FamilyIPv4
}

// rto returns the RTO bounds and whether any of them is set.
func (opts *Options) rto() (sctpcat.RTOInfo, bool) {
	rto := sctpcat.RTOInfo{Initial: opts.RTOInitial, Min: opts.RTOMin, Max: opts.RTOMax}
	return rto, rto != sctpcat.RTOInfo{}
}
