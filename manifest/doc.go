//go:generate flatc --go --go-namespace fb -o internal schema/manifest.fbs

// Package manifest records the content digest of every archive entry.
//
// A [Builder] is passed to the archive writer as its manifest sink and
// receives each entry's final stored bytes, after compression and
// encryption, so the digests match what a runtime loader fetches. The
// result is encoded as a FlatBuffers table sorted by path and parsed back
// with [Load] for O(log n) lookups.
package manifest
