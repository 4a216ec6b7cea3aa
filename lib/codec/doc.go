// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration.
//
// Two serialization formats are in use with a clear boundary:
//
//   - JSON for the HTTP API and CLI --json output.
//   - CBOR for the service socket protocol, the audit hash chain
//     input, and the encoded values stored in SQLite.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, which is what
// lets two diffs of the same before/after pair be compared byte for
// byte and lets the audit log hash events without a canonicalization
// step of its own.
//
// Timestamps encode as RFC 3339 text with nanoseconds so they survive
// a round trip without losing sub-second precision.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
//   - `cbor` tag: the type is only ever serialized as CBOR (socket
//     request envelopes).
//   - `json` tag: the type may be serialized as both JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent, so one tag controls naming for both formats. Domain
//     types in lib/issue use this.
//
// Never use both tags on the same field.
package codec
