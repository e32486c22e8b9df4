// Package darc builds and reads content archives: a game project's compiled
// resources packed into one distributable file, or an index/data file pair.
//
// Two on-disk generations exist:
//   - Legacy (version 4): one file holding a header, a pool of NUL-terminated
//     paths, 4-byte aligned payloads and a fixed-size entry table.
//   - Split (version 5): an index file of entry records with inline path and
//     content digest, and a data file holding only aligned payloads.
//
// All integers are big-endian. Payloads are LZ4 compressed per entry when it
// saves at least 5%, and script payloads may be encrypted with a counter-mode
// cipher after compression.
//
// A [Writer] stages every payload in memory, sorts entries with one
// [Ordering] for the whole build, then commits offsets and writes the archive
// front to back. Output is a pure function of the sorted entries, so the same
// inputs always produce identical bytes.
//
// A [Reader] parses either generation and hands out the stored bytes.
// Decompression and decryption are the runtime loader's job; [Reader.Decode]
// reproduces them for tooling.
package darc
