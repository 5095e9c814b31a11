// Package examfolders manages a hierarchical examination-asset namespace on top
// of a flat, key-based object store.
//
// A static taxonomy (category, subcategory, item) is turned into storage keys by
// BuildPath, planned into an ordered folder list by Plan, and materialized as
// zero-byte folder markers by a MarkerManager. Media files are written with an
// Uploader, read back with a Lister, and the implied hierarchy can be rebuilt from
// a flat listing with Reconstruct.
//
// Planning is pure and never touches storage, so it doubles as a dry run.
// Only MarkerManager and Uploader mutate the bucket.
//
// Storage backends (memory, filesystem, S3, GCS) live under the storage
// subpackages and all satisfy ObjectStore.
package examfolders
