package pack

import (
	"encoding/binary"
	"fmt"
)

const (
	headerSize       = 8
	trailerSize      = 12
	supportedVersion = 1
	digestSize       = 32

	// maxEntryPrefix bounds the bytes before an entry payload: kind/size
	// varint, compressed length uvarint and digest.
	maxEntryPrefix = 10 + binary.MaxVarintLen64 + digestSize
)

var (
	fileMagic    = [4]byte{'C', 'A', 'S', 'K'}
	trailerMagic = [4]byte{'K', 'S', 'A', 'C'}
)

// EntryKind identifies what an entry payload holds.
type EntryKind uint8

const (
	EntrySample EntryKind = 1
	EntryIndex  EntryKind = 2
)

func (k EntryKind) String() string {
	switch k {
	case EntrySample:
		return "sample"
	case EntryIndex:
		return "index"
	default:
		return fmt.Sprintf("entry(%d)", uint8(k))
	}
}

// FileHeader is the fixed-size header at the start of every archive.
//
// Bytes:
//   - 0..3: "CASK"
//   - 4..7: version (big-endian)
type FileHeader struct {
	Version uint32
}

// Marshal serializes the header.
func (h FileHeader) Marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[:4], fileMagic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	return buf
}

// UnmarshalFileHeader parses an archive header.
func UnmarshalFileHeader(data []byte) (*FileHeader, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header too short: got %d bytes", ErrInvalidArchive, len(data))
	}
	if string(data[:4]) != string(fileMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidArchive, data[:4])
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != supportedVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidArchive, version)
	}
	return &FileHeader{Version: version}, nil
}

func marshalTrailer(indexOffset uint64) []byte {
	buf := make([]byte, trailerSize)
	binary.BigEndian.PutUint64(buf[:8], indexOffset)
	copy(buf[8:], trailerMagic[:])
	return buf
}

func unmarshalTrailer(data []byte) (uint64, error) {
	if len(data) != trailerSize {
		return 0, fmt.Errorf("%w: trailer too short", ErrInvalidArchive)
	}
	if string(data[8:]) != string(trailerMagic[:]) {
		return 0, fmt.Errorf("%w: bad trailer magic %q", ErrInvalidArchive, data[8:])
	}
	return binary.BigEndian.Uint64(data[:8]), nil
}

// encodeEntryHeader encodes the variable-length entry header: three bits of
// kind and four bits of size in the first byte, the rest of the size in
// 7-bit groups.
func encodeEntryHeader(kind EntryKind, size uint64) []byte {
	b := byte((kind & 0x7) << 4)
	b |= byte(size & 0x0f)
	size >>= 4

	out := make([]byte, 0, 10)
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)

	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}
	return out
}

// decodeEntryHeader decodes an entry header, returning kind, raw payload
// size and bytes consumed.
func decodeEntryHeader(data []byte) (EntryKind, uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty entry header", ErrCorruptEntry)
	}

	b := data[0]
	kind := EntryKind((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	consumed := 1

	for b&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, 0, fmt.Errorf("%w: truncated entry header", ErrCorruptEntry)
		}
		if shift > 63 {
			return 0, 0, 0, fmt.Errorf("%w: entry size overflow", ErrCorruptEntry)
		}
		b = data[consumed]
		size |= uint64(b&0x7f) << shift
		shift += 7
		consumed++
	}
	return kind, size, consumed, nil
}

// entryPrefix is the decoded part of an entry in front of its payload.
type entryPrefix struct {
	kind           EntryKind
	size           uint64
	compressedSize uint64
	digest         Digest
	length         int
}

func marshalEntryPrefix(kind EntryKind, size, compressedSize uint64, digest Digest) []byte {
	out := encodeEntryHeader(kind, size)
	out = binary.AppendUvarint(out, compressedSize)
	return append(out, digest[:]...)
}

func unmarshalEntryPrefix(data []byte) (entryPrefix, error) {
	kind, size, n, err := decodeEntryHeader(data)
	if err != nil {
		return entryPrefix{}, err
	}
	compressed, m := binary.Uvarint(data[n:])
	if m <= 0 {
		return entryPrefix{}, fmt.Errorf("%w: bad compressed length", ErrCorruptEntry)
	}
	n += m
	if len(data) < n+digestSize {
		return entryPrefix{}, fmt.Errorf("%w: truncated digest", ErrCorruptEntry)
	}
	p := entryPrefix{kind: kind, size: size, compressedSize: compressed}
	copy(p.digest[:], data[n:n+digestSize])
	p.length = n + digestSize
	return p, nil
}
