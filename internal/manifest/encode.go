package manifest

import (
	"bytes"
	"io"

	"github.com/prn-tf/chunkvault/internal/chunk"
)

// EncodeBlob writes b as: varint m, [32]byte[m] hashes, i64 timestamp_secs.
func EncodeBlob(w io.Writer, b Blob) error {
	if err := putUvarint(w, uint64(len(b.hashes))); err != nil {
		return err
	}
	for _, h := range b.hashes {
		if err := putDigest(w, h); err != nil {
			return err
		}
	}
	return putInt64(w, b.timestamp)
}

// DecodeBlob reads the encoding produced by EncodeBlob.
func DecodeBlob(r io.Reader) (Blob, error) {
	br := byteReader{r}
	m, err := getUvarint(br)
	if err != nil {
		return Blob{}, err
	}
	hashes := make([]chunk.Digest, m)
	for i := range hashes {
		h, err := getDigest(r)
		if err != nil {
			return Blob{}, err
		}
		hashes[i] = h
	}
	ts, err := getInt64(r)
	if err != nil {
		return Blob{}, err
	}
	return Blob{hashes: hashes, timestamp: ts}, nil
}

// EncodePrevBlob writes pb as: varint p, varint[p] runs, varint q,
// [32]byte[q] diffs, i64 timestamp_secs.
func EncodePrevBlob(w io.Writer, pb PrevBlob) error {
	if err := putUvarint(w, uint64(len(pb.runs))); err != nil {
		return err
	}
	for _, r := range pb.runs {
		if err := putUvarint(w, r); err != nil {
			return err
		}
	}
	if err := putUvarint(w, uint64(len(pb.diffs))); err != nil {
		return err
	}
	for _, d := range pb.diffs {
		if err := putDigest(w, d); err != nil {
			return err
		}
	}
	return putInt64(w, pb.timestamp)
}

// DecodePrevBlob reads the encoding produced by EncodePrevBlob.
func DecodePrevBlob(r io.Reader) (PrevBlob, error) {
	br := byteReader{r}
	p, err := getUvarint(br)
	if err != nil {
		return PrevBlob{}, err
	}
	runs := make([]uint64, p)
	for i := range runs {
		v, err := getUvarint(br)
		if err != nil {
			return PrevBlob{}, err
		}
		runs[i] = v
	}
	q, err := getUvarint(br)
	if err != nil {
		return PrevBlob{}, err
	}
	diffs := make([]chunk.Digest, q)
	for i := range diffs {
		d, err := getDigest(r)
		if err != nil {
			return PrevBlob{}, err
		}
		diffs[i] = d
	}
	ts, err := getInt64(r)
	if err != nil {
		return PrevBlob{}, err
	}
	return PrevBlob{runs: runs, diffs: diffs, timestamp: ts}, nil
}

// EncodeDocument writes d as: Blob current, varint n, PrevBlob[n] history.
func EncodeDocument(w io.Writer, d Document) error {
	if err := EncodeBlob(w, d.current); err != nil {
		return err
	}
	if err := putUvarint(w, uint64(len(d.history))); err != nil {
		return err
	}
	for _, pb := range d.history {
		if err := EncodePrevBlob(w, pb); err != nil {
			return err
		}
	}
	return nil
}

// DecodeDocument reads the encoding produced by EncodeDocument.
func DecodeDocument(r io.Reader) (Document, error) {
	current, err := DecodeBlob(r)
	if err != nil {
		return Document{}, err
	}
	br := byteReader{r}
	n, err := getUvarint(br)
	if err != nil {
		return Document{}, err
	}
	history := make([]PrevBlob, n)
	for i := range history {
		pb, err := DecodePrevBlob(r)
		if err != nil {
			return Document{}, err
		}
		history[i] = pb
	}
	return Document{current: current, history: history}, nil
}

// MarshalDocument is a convenience wrapper returning the encoded bytes.
func MarshalDocument(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalDocument is a convenience wrapper decoding from a byte slice.
func UnmarshalDocument(data []byte) (Document, error) {
	return DecodeDocument(bytes.NewReader(data))
}
