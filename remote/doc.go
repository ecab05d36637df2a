// Package remote provides a binfile.ByteSource over a resource of known
// length that is fetched on demand through byte-range requests.
//
// The resource is divided into fixed-size blocks. Reading a byte fetches the
// blocks covering it unless they are already cached; consecutive blocks that
// are already cached are trimmed from both ends of a request so each load
// issues at most one fetch. Fetched blocks are kept for the lifetime of the
// Source; there is no eviction.
//
// Loads come in two forms built on the same fetch path: [Source.LoadRange]
// blocks until the data is resident, and [Source.LoadRangeAsync] reports
// completion through a callback, invoking it immediately when nothing needs
// fetching. Concurrent loads that overlap an in-flight fetch wait for it
// instead of issuing a duplicate request.
//
// Transports implement [Fetcher]; see the http and s3 packages.
package remote
