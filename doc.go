/*
Package crmap provides a conflict-free replicated map: a key-value
document that independent replicas can mutate concurrently, offline,
and later reconcile into an identical state without a coordinator and
without losing updates.

Uses

- Offline-first and peer-to-peer applications that keep replica state
as opaque binary snapshots

- Computing the minimal set of writes one replica lacks relative to
another, and applying it to converge

- Exporting the converged document as a plain ordered value tree for
display, debugging, or JSON/protobuf export

How it works

Every write is a Block identified by the replica that authored it and
that replica's sequence number (its Clock). A Doc tracks, per replica,
the next clock it expects, which is its StateVector: a compact summary
of exactly the causal history it has applied. Diffing a Doc against a
peer's StateVector yields an Update holding every Block the peer lacks,
always as a contiguous run per replica. Integrating an Update skips
Blocks already seen, refuses Updates with missing predecessors, and
otherwise applies every Block at once.

Conflicting writes to the same key are resolved by a total order that
depends only on the Blocks themselves, never on arrival order: a write
made after seeing another write on the same key wins over it, and
concurrent writes are ordered by replica id, highest wins. Hence any
replicas that have integrated the same Blocks, in any order and any
number of times, project the same value.

Concurrency

A Doc is owned by one goroutine at a time: callers serialize Set,
Delete and Integrate. Read-only calls may run concurrently with each
other. Distinct Docs share no mutable state, so a Doc can be Clone()d
to fork a replica.

Persistence

Snapshots and updates are plain bytes; the Persist interface and the
backends under persist/ store them in memory, files, S3, pebble or
redis.
*/
package crmap
