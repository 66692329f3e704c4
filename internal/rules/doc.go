// Package rules evaluates declarative use cases against the unified event
// stream.
//
// A use case is loaded from one YAML file and holds an ordered list of
// rules. Each rule names a Kind; kinds are dispatched through a fixed
// handler table and unknown kinds are ignored. The Engine keeps the dwell
// and cooldown state shared by every camera and serialises access to it.
package rules
