// Package pack implements the cask container format: a single append-only
// file of content-addressed, zstd-compressed entries followed by a
// hierarchy index.
//
// Layout:
//
//	header   "CASK" | version (uint32, big-endian)
//	entries  kind/size varint | compressed length (uvarint) |
//	         BLAKE2b-256 digest of the raw payload | zstd payload
//	trailer  index entry offset (uint64, big-endian) | "KSAC"
//
// Sample blobs are written as soon as they are set and deduplicated by
// digest, so a property whose samples never change references one blob.
// The index entry, written on Close, records time samplings and the
// object/property tree with the blob offset of every sample. Readers decode
// blobs lazily and verify each against its digest, so damage to one sample
// surfaces as an error for that sample only.
package pack
