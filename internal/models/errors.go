package models

import "fmt"

// HardReject is returned when an email fails syntactic validation before
// any probe runs. It short-circuits scoring entirely.
type HardReject struct {
	Code   string
	Detail string
}

func (e *HardReject) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func NewHardReject(detail string) *HardReject {
	return &HardReject{Code: "INVALID_SYNTAX", Detail: detail}
}

// ProbeFailure wraps any probe-level failure (timeout, transport, parse).
// The engine never surfaces these to the caller; it records them in
// metrics and treats the corresponding signal as null.
type ProbeFailure struct {
	Probe string
	Err   error
}

func (e *ProbeFailure) Error() string {
	return fmt.Sprintf("probe %s failed: %v", e.Probe, e.Err)
}

func (e *ProbeFailure) Unwrap() error { return e.Err }

func NewProbeFailure(probe string, err error) *ProbeFailure {
	return &ProbeFailure{Probe: probe, Err: err}
}

// EngineTimeout describes an overall analyse budget that expired before
// even the minimum cheap signal set (disposable + MX + entropy) completed.
// Engine.Analyse does not return it: when the budget expires, the probes
// that had not finished leave their signals nil and the envelope is
// scored from the rest.
type EngineTimeout struct {
	Elapsed string
}

func (e *EngineTimeout) Error() string {
	return fmt.Sprintf("engine timeout after %s", e.Elapsed)
}

// StoreUnavailable is returned by store-backed operations (velocity,
// caches, job queue) when the backing KV store cannot be reached. Callers
// degrade rather than fail: velocity treated as zero, caches bypassed,
// background enrichment reports DISABLED for the call.
type StoreUnavailable struct {
	Op  string
	Err error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

// ConfigError is raised only at startup. In non-dev environments a
// missing admin key or an invalid weight fails closed and prevents
// startup.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error on %s: %s", e.Field, e.Detail)
}
