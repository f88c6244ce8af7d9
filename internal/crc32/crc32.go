// Package crc32 computes the header checksum: a CRC-32 over the bytes
// between a struct's magic and the checksum field itself. hash/crc32's
// standard IEEE polynomial matches the original crc32.c, so it is used
// directly rather than hand-rolled.
package crc32

import "hash/crc32"

// Checksum returns the IEEE CRC-32 of b.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
