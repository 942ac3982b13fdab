// Package provision implements the reconciliation engine that resolves a
// requester into a canonical, provisioned tenant.
//
// # Reconciliation
//
// ReconcileTenant decides, per call, whether to trust the credential cache,
// adopt pre-existing remote state, or provision from scratch:
//
//   - Cache hit: return the stored record unchanged, zero remote calls.
//     The cache is authoritative once populated even though the remote side
//     can diverge; the staleness window is an accepted, configured policy.
//   - Cache miss, remote user exists: rotate the remote credential, resolve
//     the bound project, write through to the cache.
//   - Cache miss, remote absent: run the provisioning sub-protocol in
//     strict order (project, user, role, network stack, security group),
//     then write through to the cache.
//
// A per-requester mutex makes the cache-miss paths single-writer per key,
// so two concurrent calls for the same requester cannot both provision.
//
// # Failure model
//
// No step is retried and nothing is rolled back. A sub-protocol failure
// after the project exists surfaces as a partial-provisioning fault so
// operators can inspect the orphaned resources; everything else keeps the
// kind assigned by the layer that failed.
package provision
