// Package anonymize wires history discovery, rewriting and branch updates into a
// per-repository service and the anonymize command.
package anonymize
