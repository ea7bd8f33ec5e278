// Package netcfg models the per-interface Ethernet configuration primitive
// design/030_CDU_Gateway_Overview.md §1 names as an external collaborator ("Out of scope... treated
// as external collaborators, referenced only through their interfaces").
// This gateway depends only on the Applier interface; main wires a concrete
// implementation appropriate to the deployment target.
package netcfg

import "log/slog"

// Config is the subset of an IPv4 interface configuration the Redfish
// EthernetInterfaces PATCH handler (design/040_CDU_Gateway_Redfish_API.md §4.I) accepts.
type Config struct {
	Interface     string
	Address       string
	SubnetMask    string
	Gateway       string
	AddressOrigin string // "Static" or "DHCP"
}

// Applier applies a Config to the host network stack.
type Applier interface {
	Apply(cfg Config) error
}

// LoggingApplier is a logging-only stand-in for the real platform-specific
// primitive: it records what would have been applied without touching the
// host network stack, since changing it is outside this process's
// business when no concrete Applier is wired in.
type LoggingApplier struct{}

func (LoggingApplier) Apply(cfg Config) error {
	slog.Info("netcfg: would apply interface configuration",
		"interface", cfg.Interface, "address", cfg.Address, "mask", cfg.SubnetMask,
		"gateway", cfg.Gateway, "origin", cfg.AddressOrigin)
	return nil
}
