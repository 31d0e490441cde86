package trace

import (
	"hash/crc32"
	"strconv"
	"strings"
)

// Checksum computes the CRC32-IEEE checksum of rec, ignoring rec.Checksum.
//
// Fields are joined with '|' so that adjacent values cannot run together
// ("A"+"12" and "A1"+"2" hash differently).
func Checksum(rec Record) uint32 {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(rec.Seq, 10))
	b.WriteByte('|')
	b.WriteString(rec.RunID)
	b.WriteByte('|')
	b.WriteString(string(rec.Scheme))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(rec.Tick))
	b.WriteByte('|')
	b.WriteString(string(rec.Kind))
	b.WriteByte('|')
	b.WriteString(rec.TaskID)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(rec.Tier))

	return crc32.ChecksumIEEE([]byte(b.String()))
}

// VerifyChecksum reports whether rec carries the checksum of its own fields.
func VerifyChecksum(rec Record) bool {
	return rec.Checksum == Checksum(rec)
}
