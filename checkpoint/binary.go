package checkpoint

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// This file contains the binary encoding format for table snapshots.

func encInt(i int) []byte {
	enc := make([]byte, 8)
	binary.PutVarint(enc, int64(i))
	return enc
}

// always consumes 8 bytes.
func decInt(data []byte) (int, int, error) {
	if len(data) < 8 {
		return 0, 0, fmt.Errorf("data does not contain 8 bytes")
	}
	val, read := binary.Varint(data[:8])
	if read <= 0 {
		return 0, 0, fmt.Errorf("malformed varint in snapshot data")
	}
	return int(val), 8, nil
}

func encString(s string) []byte {
	enc := encInt(len(s))
	return append(enc, s...)
}

// returns the string followed by bytes consumed.
func decString(data []byte) (string, int, error) {
	byteLen, n, err := decInt(data)
	if err != nil {
		return "", 0, fmt.Errorf("decoding string length: %w", err)
	}
	data = data[n:]
	if byteLen < 0 || len(data) < byteLen {
		return "", 0, fmt.Errorf("unexpected end of data in string")
	}
	return string(data[:byteLen]), n + byteLen, nil
}

func encStringSlice(ss []string) []byte {
	data := encInt(len(ss))
	for _, s := range ss {
		data = append(data, encString(s)...)
	}
	return data
}

func decStringSlice(data []byte) ([]string, int, error) {
	count, readBytes, err := decInt(data)
	if err != nil {
		return nil, 0, err
	}
	data = data[readBytes:]

	var out []string
	for i := 0; i < count; i++ {
		s, n, err := decString(data)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
		data = data[n:]
		readBytes += n
	}
	return out, readBytes, nil
}

// MarshalBinary encodes the snapshot. Cell rows are written in sorted key
// order so encoding is deterministic across runs.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	data := encInt(s.M)
	data = append(data, encStringSlice(s.S)...)
	data = append(data, encStringSlice(s.E)...)

	keys := make([]string, 0, len(s.Cells))
	for k := range s.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data = append(data, encInt(len(keys))...)
	for _, k := range keys {
		data = append(data, encString(k)...)
		row := s.Cells[k]
		data = append(data, encInt(len(row))...)
		for _, c := range row {
			data = append(data, encInt(int(c))...)
		}
	}
	return data, nil
}

// UnmarshalBinary decodes a snapshot previously produced by MarshalBinary.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	var n int
	var err error

	s.M, n, err = decInt(data)
	if err != nil {
		return fmt.Errorf("decoding m: %w", err)
	}
	data = data[n:]

	s.S, n, err = decStringSlice(data)
	if err != nil {
		return fmt.Errorf("decoding S: %w", err)
	}
	data = data[n:]

	s.E, n, err = decStringSlice(data)
	if err != nil {
		return fmt.Errorf("decoding E: %w", err)
	}
	data = data[n:]

	rowCount, n, err := decInt(data)
	if err != nil {
		return fmt.Errorf("decoding row count: %w", err)
	}
	data = data[n:]

	s.Cells = make(map[string][]int8, rowCount)
	for i := 0; i < rowCount; i++ {
		key, n, err := decString(data)
		if err != nil {
			return fmt.Errorf("decoding row key: %w", err)
		}
		data = data[n:]

		cellCount, n, err := decInt(data)
		if err != nil {
			return fmt.Errorf("decoding row %q cell count: %w", key, err)
		}
		data = data[n:]

		row := make([]int8, cellCount)
		for j := 0; j < cellCount; j++ {
			v, n, err := decInt(data)
			if err != nil {
				return fmt.Errorf("decoding row %q cell %d: %w", key, j, err)
			}
			data = data[n:]
			row[j] = int8(v)
		}
		s.Cells[key] = row
	}
	return nil
}
