package tinyps

/*
TinyPS is the key-value push/pull engine of a distributed parameter server,
written entirely in Go. Worker nodes push and pull lists of key-value pairs
to and from server nodes; each request is partitioned across the servers
owning the keys, fanned out, and completed asynchronously once every
non-empty destination has answered.

The `tinyps` module is organized into the following packages, all under `ps`:

* `sarray`, `kvpairs`: the payload types, shared slice views and the
  sorted key/value/length triple they form.
* `topology`: the per-server key range assignment and rank to node id
  mapping.
* `slicer`: the partitioning policies (range based and modulo based), each
  paired with the merge that re-assembles its pulled replies.
* `tracker`: timestamps and expected-versus-received response accounting.
* `transport`: message delivery, an in-process router and a gRPC
  client/listener pair.
* `worker`, `server`: the two node roles.
* `server/storeop`: ready-made server handles over in-memory and
  badger-backed stores.

Building the module produces one executable, the server node. Workers are
embedded in application processes through the `worker` package.
*/
