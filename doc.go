// Package pgprobe validates connectivity to a PostgreSQL database.
//
// A Prober resolves connection configuration once, then offers three
// stateless operations: TestConnection (reachability plus server
// introspection), HealthCheck (liveness, schema presence, and latency
// classification), and Info (a pure configuration snapshot).
//
// Invariants:
//
//   - I1: probe operations never return errors; failures are carried in the
//     returned result value.
//   - I2: every connection a probe opens is closed before the probe returns,
//     on every exit path.
//   - I3: configuration is resolved once per Prober and read-only afterwards.
//   - I4: errors and log lines emitted on the connect path are safe to log by
//     default (no DSN or password material).
//   - I5: only PostgreSQL is supported; any other database type is rejected
//     at construction.
package pgprobe
