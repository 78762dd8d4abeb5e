// Package convert streams CSV sources into Parquet files in bounded-memory
// chunks.
//
// The schema is inferred from the first chunk and frozen; every later chunk
// is coerced to it and appended as its own row group. A source with no data
// rows produces no file at all.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"transport_el/internal/pkg/pkgerror"
)

// DefaultParallelism is the number of marshalling goroutines parquet-go uses.
const DefaultParallelism = 4

// ParseCompression maps a codec name such as "snappy" to its Parquet codec.
func ParseCompression(name string) (parquet.CompressionCodec, error) {
	codec, err := parquet.CompressionCodecFromString(strings.ToUpper(name))
	if err != nil {
		return parquet.CompressionCodec_UNCOMPRESSED, pkgerror.NewConfig(fmt.Errorf("compression %q: %w", name, err))
	}
	return codec, nil
}

// Converter writes one Parquet file per CSV source.
type Converter struct {
	ChunkSize   int
	Compression parquet.CompressionCodec
	Parallelism int64
}

// New creates a Converter for the given chunk size and codec name.
func New(chunkSize int, compression string) (*Converter, error) {
	if chunkSize <= 0 {
		return nil, pkgerror.NewConfig(fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	codec, err := ParseCompression(compression)
	if err != nil {
		return nil, err
	}

	return &Converter{
		ChunkSize:   chunkSize,
		Compression: codec,
		Parallelism: DefaultParallelism,
	}, nil
}

// Result describes one conversion.
type Result struct {
	Source    string
	Output    string
	Written   bool // false when the source had no data rows and no file was created
	Schema    Schema
	Rows      int64
	RowGroups []int64 // row count of each row group, in write order
	Bytes     int64   // size of the output file
}

// Convert converts the CSV file at src into a Parquet file at dst.
//
// A missing src is reported as a missing-input error; callers that want to
// skip absent sources should check for it before calling.
func (c *Converter) Convert(ctx context.Context, src, dst string) (*Result, error) {
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerror.NewMissingInput("", src)
		}
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	res, err := c.ConvertReader(ctx, f, dst)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", src, err)
	}
	res.Source = src

	return res, nil
}

// ConvertReader converts CSV read from r into a Parquet file at dst. The file
// is created only once the first batch arrives; on failure it is removed.
func (c *Converter) ConvertReader(ctx context.Context, r io.Reader, dst string) (*Result, error) {
	br, err := NewBatchReader(r, c.ChunkSize)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "csv header read", "columns", br.Header(), "output", dst)

	res := &Result{Output: dst}
	var w *parquetFile

	for {
		if err := ctx.Err(); err != nil {
			w.abort()
			return nil, err
		}

		batch, err := br.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.abort()
			return nil, err
		}

		slog.InfoContext(ctx, "processing chunk", "chunk", batch.Index, "rows", batch.Len(), "output", dst)

		if w == nil {
			res.Schema = InferSchema(batch.Header, batch.Rows)
			slog.InfoContext(ctx, "schema inferred", "columns", res.Schema.Names(), "output", dst)
			w, err = c.create(dst, res.Schema)
			if err != nil {
				return nil, err
			}
		}

		n, err := w.writeBatch(res.Schema, batch)
		if err != nil {
			w.abort()
			return nil, err
		}
		res.Rows += n
		res.RowGroups = append(res.RowGroups, n)
	}

	if w == nil {
		slog.WarnContext(ctx, "no rows read, no parquet file written", "output", dst)
		return res, nil
	}

	if err := w.close(); err != nil {
		return nil, err
	}
	res.Written = true

	res.Bytes = fileSize(ctx, dst)

	slog.InfoContext(ctx, "parquet file written",
		"output", dst, "rows", res.Rows, "row_groups", len(res.RowGroups), "bytes", res.Bytes)

	return res, nil
}

// fileSize returns the size of the file at path, or 0 when it cannot be
// read.
func fileSize(ctx context.Context, path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		slog.WarnContext(ctx, "failed to stat parquet file", "output", path, "error", err)
		return 0
	}
	return info.Size()
}

// parquetFile is the single writer of one output file.
type parquetFile struct {
	path string
	fw   source.ParquetFile
	pw   *writer.CSVWriter
}

func (c *Converter) create(path string, schema Schema) (*parquetFile, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create local file writer: %w", err)
	}

	np := c.Parallelism
	if np < 1 {
		np = DefaultParallelism
	}

	pw, err := writer.NewCSVWriter(schema.Metadata(), fw, np)
	if err != nil {
		fw.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	pw.CompressionType = c.Compression
	// Row groups are cut explicitly after every batch, never by size.
	pw.RowGroupSize = math.MaxInt64

	return &parquetFile{path: path, fw: fw, pw: pw}, nil
}

// writeBatch coerces every row of batch under schema, appends it and ends
// the row group.
func (w *parquetFile) writeBatch(schema Schema, batch *Batch) (int64, error) {
	for i, row := range batch.Rows {
		values, err := schema.Coerce(row)
		if err != nil {
			var mismatch *MismatchError
			if errors.As(err, &mismatch) {
				mismatch.Batch = batch.Index
				mismatch.Row = batch.Offset + i + 1
				return 0, pkgerror.NewSchemaMismatch(mismatch)
			}
			return 0, fmt.Errorf("row %d: %w", batch.Offset+i+1, err)
		}

		if err := w.pw.Write(values); err != nil {
			return 0, fmt.Errorf("write row %d: %w", batch.Offset+i+1, err)
		}
	}

	if err := w.pw.Flush(true); err != nil {
		return 0, fmt.Errorf("flush row group %d: %w", batch.Index, err)
	}

	return int64(batch.Len()), nil
}

func (w *parquetFile) close() error {
	if err := w.pw.WriteStop(); err != nil {
		w.fw.Close()
		os.Remove(w.path)
		return fmt.Errorf("error in WriteStop: %w", err)
	}

	if err := w.fw.Close(); err != nil {
		os.Remove(w.path)
		return fmt.Errorf("error closing file writer: %w", err)
	}

	return nil
}

// abort discards a partially written file. It is a no-op on a nil writer.
func (w *parquetFile) abort() {
	if w == nil {
		return
	}
	w.fw.Close()
	os.Remove(w.path)
}
