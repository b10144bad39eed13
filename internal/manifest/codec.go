package manifest

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
)

// Wire format: little-endian throughout. Sequence lengths are encoded as
// unsigned LEB128 varints (7 bits per byte, MSB = continuation bit).
// Chunk digests are written as their raw 32 bytes, no length prefix.
// Timestamps are signed 64-bit little-endian.

func putUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func getUvarint(r io.ByteReader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", engineerrors.ErrSerialization, err)
	}
	return v, nil
}

func putDigest(w io.Writer, d chunk.Digest) error {
	_, err := w.Write(d[:])
	return err
}

func getDigest(r io.Reader) (chunk.Digest, error) {
	var d chunk.Digest
	if _, err := io.ReadFull(r, d[:]); err != nil {
		return chunk.Digest{}, fmt.Errorf("%w: %s", engineerrors.ErrSerialization, err)
	}
	return d, nil
}

func putInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func getInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %s", engineerrors.ErrSerialization, err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// byteReader adapts an io.Reader into the io.ByteReader binary.ReadUvarint
// needs, without requiring callers to pass a bufio.Reader everywhere.
type byteReader struct {
	io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.Reader, buf[:])
	return buf[0], err
}
