package entry

import "time"

// RecordType discriminates logged commands.
type RecordType uint8

const (
	RecordSubmit RecordType = iota
	RecordCancel
	RecordModify
)

// Record is one immutable command-log entry. Seq is the log's own framing
// sequence, distinct from order arrival sequences carried in the payload.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
