// Package authguard is the client-side security-control layer of the
// posture dashboard: CSRF token handling, password-strength policy, audit
// logging, login rate limiting, and the auth controller that ties them to
// the hosted authentication provider.
//
// The package is the public surface. It exposes [Controller], [Builder],
// [Config], [State], and the [Provider] collaborator interface; the leaf
// components live in their own packages (audit, csrf, password, ratelimit,
// storage) so form handlers can consult them directly without going
// through the controller.
//
// # Architecture boundaries
//
//   - The hosted auth provider is opaque: this layer never inspects
//     tokens or sessions beyond the [Session] shape, and never surfaces a
//     provider's raw error text to users.
//   - Stores are injected ([storage.KV], audit sinks, the CSRF manager),
//     never ambient globals, so tests run against in-memory fakes without
//     cross-test contamination.
//   - Enforcement is best-effort and local to one client. Rate limits and
//     the audit trail are not a security boundary; the provider remains
//     the authority.
//
// # Failure posture
//
// Nothing here is fatal. Audit appends and IP lookups are fully recovered
// internally; rate-limit and CSRF rejections end the current submission
// with a generic message; logout always appears to succeed.
package authguard
