package checksums

import (
	"encoding/binary"
	"hash/crc32"
)

// CalculateCRC writes the IEEE crc32 of buffer into the 4 byte
// checkSumLocation slice.
func CalculateCRC(checkSumLocation []byte, buffer []byte) {
	chksum := crc32.ChecksumIEEE(buffer)
	binary.BigEndian.PutUint32(checkSumLocation, chksum)
}

// VerifyCRC recomputes the crc32 of buffer and compares it against the
// 4 byte stored checksum.
func VerifyCRC(stored []byte, buffer []byte) bool {
	return binary.BigEndian.Uint32(stored) == crc32.ChecksumIEEE(buffer)
}
