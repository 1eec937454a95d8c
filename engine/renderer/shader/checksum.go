package shader

import (
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum64 is a rolling 64-bit checksum. Each 8-byte word (and the final
// partial word, if any) is run through CRC32-C seeded with the low half of
// the accumulator, and the result is folded into the swapped accumulator.
// Empty input sums to zero.
func Checksum64(data []byte) uint64 {
	var sum uint64
	for len(data) >= 8 {
		sum = fold(sum, data[:8])
		data = data[8:]
	}
	if len(data) > 0 {
		sum = fold(sum, data)
	}
	return sum
}

func fold(sum uint64, word []byte) uint64 {
	c := crc32.Update(uint32(sum), castagnoli, word)
	return (sum<<32 | sum>>32) ^ uint64(c)
}
