package models

import (
	"bytes"
	"encoding/binary"
	"time"

	"voting-protocol/encryption"
)

// Record is one entry of the audit ledger: a phase message frozen with a hash
// link to its predecessor. The ledger exists so an operator can check after
// the fact that no relayed value was altered or reordered.
type Record struct {
	Index     uint64 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Phase     string `json:"phase"`
	Data      []byte `json:"data"`
	PrevHash  []byte `json:"prev_hash"`
	Hash      []byte `json:"hash"`
}

func NewRecord(index uint64, phase string, data, prevHash []byte) *Record {
	r := &Record{
		Index:     index,
		Timestamp: time.Now().Unix(),
		Phase:     phase,
		Data:      data,
		PrevHash:  prevHash,
	}
	r.Hash = r.calculateHash()
	return r
}

func (r *Record) calculateHash() []byte {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, r.Index)
	binary.Write(buffer, binary.BigEndian, r.Timestamp)
	buffer.WriteString(r.Phase)
	buffer.Write(r.Data)
	buffer.Write(r.PrevHash)
	return encryption.Keccak256(buffer.Bytes())
}

// Validate recomputes the record hash.
func (r *Record) Validate() bool {
	return bytes.Equal(r.Hash, r.calculateHash())
}

// ValidateLedger checks every record and every predecessor link.
func ValidateLedger(records []*Record) bool {
	for i, record := range records {
		if !record.Validate() {
			return false
		}
		if record.Index != uint64(i) {
			return false
		}
		if i > 0 && !bytes.Equal(record.PrevHash, records[i-1].Hash) {
			return false
		}
	}
	return true
}
