// Package service orchestrates the core components of the
// exchange: store, matching engine, and journal.
//
// It provides a clean API for placing, cancelling, and
// draining orders, decoupled from network transports like
// the session protocol or gRPC.
package service
