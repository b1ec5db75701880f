// Package snowflake issues 64-bit, time-ordered identifiers without
// coordination between nodes and decodes them back into their parts.
//
// Layout, from the least significant bit:
//
//	sequence       12 bits  [0, 12)
//	worker id       5 bits  [12, 17)
//	datacenter id   5 bits  [17, 22)
//	offset         41 bits  [22, 63)  milliseconds since Epoch
//
// Bit 63 is never set, so every ID also fits a signed 64-bit column.
package snowflake

import (
	"strconv"
	"time"
)

// Epoch is the reference instant, in Unix milliseconds, that offsets are
// measured from: 2017-01-01 00:00 at UTC+8. Every generator and decoder that
// shares an ID space must agree on it.
const Epoch int64 = 1483200000000

const (
	seqBits        = 12
	workerBits     = 5
	datacenterBits = 5
	offsetBits     = 41

	workerShift     = seqBits
	datacenterShift = seqBits + workerBits
	offsetShift     = seqBits + workerBits + datacenterBits

	MaxSequence     = 1<<seqBits - 1
	MaxWorkerID     = 1<<workerBits - 1
	MaxDatacenterID = 1<<datacenterBits - 1
	MaxOffset       = 1<<offsetBits - 1
)

// ID is a generated identifier. It is rendered in base 10 as text and JSON,
// since most JSON decoders lose precision above 2^53.
type ID uint64

// ParseID parses the base-10 form produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ID) MarshalText() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(id), 10), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Meta is the decomposition of an ID.
type Meta struct {
	Offset         int64     `json:"offset"`
	WorkerID       int64     `json:"workerId"`
	DatacenterID   int64     `json:"datacenterId"`
	Sequence       int64     `json:"sequence"`
	GenerationTime time.Time `json:"generationTime"`
}

// Decode splits id into its fields. It never fails: any 64-bit value decodes
// to something, whether or not a generator produced it.
func Decode(id ID) Meta {
	u := uint64(id)
	offset := int64(u >> offsetShift & MaxOffset)
	return Meta{
		Offset:         offset,
		WorkerID:       int64(u >> workerShift & MaxWorkerID),
		DatacenterID:   int64(u >> datacenterShift & MaxDatacenterID),
		Sequence:       int64(u & MaxSequence),
		GenerationTime: time.UnixMilli(Epoch + offset),
	}
}

func compose(offset, datacenterID, workerID, seq int64) ID {
	return ID(offset<<offsetShift | datacenterID<<datacenterShift | workerID<<workerShift | seq)
}
