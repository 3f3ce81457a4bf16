package pdr

import "hash/crc32"

// crc32IEEE computes CRC32 with the IEEE polynomial (0xEDB88320), the
// same algorithm and final value as the original implementation's
// bit-by-bit crc32_buf — that implementation avoided a lookup table
// purely to save flash on an embedded target, a constraint that does
// not apply here; crc32.ChecksumIEEE produces an identical result.
func crc32IEEE(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
