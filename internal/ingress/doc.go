// Package ingress maintains the shared Cloudflare Tunnel ingress rule table
// and the DNS records pointing at the tunnel.
//
// # Overview
//
// The remote rule table is an ordered sequence evaluated first-match-wins by
// the edge router. The Table type holds the in-memory representation and
// enforces two invariants on insertion:
//
//   - Hostnames are normalized: one trailing dot is stripped, and the
//     configured domain suffix is appended when absent.
//   - No two rules may collide, where a collision is an existing rule's
//     hostname containing the candidate as a substring.
//
// New rules are prepended so that the newest mapping takes precedence over
// possibly-stale broader ones.
//
// # Catch-All Rule
//
// A catch-all rule returning HTTP 404 is always kept as the last rule, as
// required by Cloudflare Tunnel configuration.
//
// # Concurrency
//
// The remote table has no version tokens, so concurrent read-modify-write
// cycles race. Manager serializes the whole fetch, insert, push, DNS cycle
// behind a single-writer mutex within this process.
package ingress
