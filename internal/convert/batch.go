package convert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"transport_el/internal/pkg/pkgerror"
)

// Batch is one bounded window of rows read from a CSV source.
type Batch struct {
	Index  int      // 0-based batch number
	Offset int      // number of data rows before this batch
	Header []string // raw header of the source
	Rows   [][]string
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// BatchReader streams a CSV source in fixed-size batches. At most one batch
// is resident at a time.
type BatchReader struct {
	r      *csv.Reader
	size   int
	header []string
	index  int
	offset int
	done   bool
}

// NewBatchReader reads the header row of r and prepares batches of size rows.
// An input without a header row behaves like an input without data rows.
func NewBatchReader(r io.Reader, size int) (*BatchReader, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // short rows are padded, long rows rejected by Coerce

	br := &BatchReader{r: reader, size: size}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		br.done = true
		return br, nil
	}
	if err != nil {
		return nil, pkgerror.NewMalformedInput(fmt.Errorf("read header: %w", err))
	}
	br.header = header

	return br, nil
}

// Header returns the raw header row.
func (br *BatchReader) Header() []string {
	return br.header
}

// Next returns the next batch, or io.EOF once the source is exhausted. The
// last batch may hold fewer than size rows; an empty batch is never returned.
func (br *BatchReader) Next() (*Batch, error) {
	if br.done {
		return nil, io.EOF
	}

	rows := make([][]string, 0, br.size)
	for len(rows) < br.size {
		record, err := br.r.Read()
		if errors.Is(err, io.EOF) {
			br.done = true
			break
		}
		if err != nil {
			return nil, pkgerror.NewMalformedInput(fmt.Errorf("read row %d: %w", br.offset+len(rows)+1, err))
		}
		// Blank lines are skipped by encoding/csv; a lone empty field is not.
		if len(record) == 1 && record[0] == "" && len(br.header) > 1 {
			continue
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, io.EOF
	}

	batch := &Batch{
		Index:  br.index,
		Offset: br.offset,
		Header: br.header,
		Rows:   rows,
	}
	br.index++
	br.offset += len(rows)

	return batch, nil
}
