package convert

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// FileInfo summarises a Parquet file from its footer.
type FileInfo struct {
	Columns     []string
	Types       []string
	RowGroups   []int64
	Rows        int64
	Compression string
}

// Inspect reads the footer of the Parquet file at path.
func Inspect(path string) (*FileInfo, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, 1)
	if err != nil {
		return nil, fmt.Errorf("read footer of %s: %w", path, err)
	}
	defer pr.ReadStop()

	info := &FileInfo{Rows: pr.GetNumRows()}

	// The first schema element is the root group. Footer.Schema holds the
	// reader's capitalised in-memory names; ExName is the name on disk.
	for i := 1; i < len(pr.Footer.Schema); i++ {
		info.Columns = append(info.Columns, pr.SchemaHandler.Infos[i].ExName)
		info.Types = append(info.Types, pr.Footer.Schema[i].GetType().String())
	}

	for _, rg := range pr.Footer.RowGroups {
		info.RowGroups = append(info.RowGroups, rg.GetNumRows())
		if info.Compression == "" && len(rg.Columns) > 0 && rg.Columns[0].MetaData != nil {
			info.Compression = rg.Columns[0].MetaData.GetCodec().String()
		}
	}

	return info, nil
}

// ReadAll reads every row of the Parquet file at path. Nulls are nil; other
// values are int64, float64, bool or string according to the column type.
func ReadAll(path string) ([][]interface{}, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, 1)
	if err != nil {
		return nil, fmt.Errorf("read footer of %s: %w", path, err)
	}
	defer pr.ReadStop()

	num := pr.GetNumRows()
	ncols := len(pr.Footer.Schema) - 1

	rows := make([][]interface{}, num)
	for i := range rows {
		rows[i] = make([]interface{}, ncols)
	}

	for c := 0; c < ncols; c++ {
		values, _, _, err := pr.ReadColumnByIndex(int64(c), num)
		if err != nil {
			return nil, fmt.Errorf("read column %d of %s: %w", c, path, err)
		}
		if int64(len(values)) != num {
			return nil, fmt.Errorf("column %d of %s: read %d values, want %d", c, path, len(values), num)
		}
		for r, v := range values {
			rows[r][c] = v
		}
	}

	return rows, nil
}
