package entry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

type ReplayHandler func(*Record) error

var errTornRecord = errors.New("torn record")

// Replay feeds every logged record to fn in seq order and returns the last
// seq applied. The first torn or corrupt record in the final segment marks
// the end of the log (the crash interrupted that append) and any bytes after
// it are not read; a torn or corrupt record in an earlier segment is an
// error.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	files, err := segmentFiles(dir)
	if err != nil {
		return 0, err
	}

	for i, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}

		for {
			rec, err := readRecord(f)
			if err == io.EOF {
				break
			}
			if errors.Is(err, errTornRecord) {
				_ = f.Close()
				if i == len(files)-1 {
					return lastSeq, nil
				}
				return lastSeq, fmt.Errorf("wal: torn record in non-final segment %s", path)
			}
			if err != nil {
				_ = f.Close()
				return lastSeq, err
			}

			if rec.Seq <= lastSeq {
				_ = f.Close()
				return lastSeq, fmt.Errorf("wal: non-monotonic seq %d", rec.Seq)
			}
			lastSeq = rec.Seq

			if err := fn(rec); err != nil {
				_ = f.Close()
				return lastSeq, err
			}
		}
		_ = f.Close()
	}

	return lastSeq, nil
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, 21)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errTornRecord
	}

	t := RecordType(header[0])
	seq := binary.BigEndian.Uint64(header[1:9])
	ts := binary.BigEndian.Uint64(header[9:17])
	l := binary.BigEndian.Uint32(header[17:21])

	data := make([]byte, l+4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errTornRecord
	}

	payload := data[:l]
	crc := binary.BigEndian.Uint32(data[l:])
	if !CRC32Valid(append(header, payload...), crc) {
		return nil, errTornRecord
	}

	return &Record{
		Type: t,
		Seq:  seq,
		Time: int64(ts),
		Data: payload,
	}, nil
}
