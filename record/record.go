// Package record defines the read record shared across the compression
// pipeline: the (id, sequence, quality) triple parsed from FASTQ input
// before it is split into per-column substreams for block encoding.
package record

import "fmt"

// Record is one FASTQ read. Invariant: len(Qual) == len(Seq) for a valid
// record (spec §3).
type Record struct {
	ID   string
	Seq  []byte
	Qual string
}

// Validate checks the length invariant.
func (r Record) Validate() error {
	if len(r.Qual) != len(r.Seq) {
		return fmt.Errorf("record %q: qual length %d != seq length %d", r.ID, len(r.Qual), len(r.Seq))
	}
	return nil
}
