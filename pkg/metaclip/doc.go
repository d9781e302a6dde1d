// Package metaclip provides a reusable library for a small networked item
// store with pluggable metadata repositories and blob storage backends.
//
// It exposes a single Service interface that orchestrates item creation and
// deletion, one-time file materialization, range-aware content reads, and the
// raw-query gateway guarded by the statement firewall. Implementations of
// metadata repositories (memory, SQLite, Postgres) and blob stores (memory,
// filesystem, S3) are provided under subpackages.
//
// # Binary transport encoding
//
// Item content is binary-safe. Wherever content crosses a JSON boundary
// (structured item responses, raw-query result rows) it is encoded with
// standard base64. This is a deployment-wide constant: decode(encode(b)) == b
// for every byte sequence, including empty and non-UTF-8 data.
package metaclip
