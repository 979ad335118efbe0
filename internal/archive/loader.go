// Package archive loads historical per-station CSV files laid out as one
// subfolder per year with one file per station, and concatenates them into a
// single table tagged with year and source_file columns.
package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/apetrei/meteotab/internal/frame"
	"github.com/apetrei/meteotab/internal/observability"
)

// ErrNoData is returned when no archive file could be loaded at all.
var ErrNoData = errors.New("no archive data loaded")

// Tag columns appended by the loader, not present in the source files.
const (
	ColYear       = "year"
	ColSourceFile = "source_file"
)

// Loader reads <root>/<year>/<station>.csv for every year subfolder and
// every configured station.
type Loader struct {
	root     string
	stations []string
	logger   *zap.Logger
}

// NewLoader creates a Loader. stations are file names without the .csv
// extension, typically station identifiers.
func NewLoader(root string, stations []string, logger *zap.Logger) *Loader {
	return &Loader{root: root, stations: stations, logger: logger}
}

// Load concatenates every present station file across every year folder.
// Missing files are logged and skipped; unreadable or malformed files are
// logged and skipped as well. Column order is the order of first appearance
// across files, with the year and source_file tags appended last. Cells for
// columns a file does not carry stay nil and fall to the cleaner's
// missing-value rules.
func (l *Loader) Load() (*frame.Table, error) {
	years, err := l.yearFolders()
	if err != nil {
		return nil, fmt.Errorf("scan archive root: %w", err)
	}

	type fileData struct {
		year    int
		station string
		header  []string
		rows    [][]string
	}
	var files []fileData
	var columns []string
	seen := map[string]struct{}{}

	for _, year := range years {
		for _, station := range l.stations {
			path := filepath.Join(l.root, strconv.Itoa(year), station+".csv")
			header, rows, err := readCSV(path)
			if err != nil {
				if os.IsNotExist(err) {
					observability.ArchiveFilesTotal.WithLabelValues("missing").Inc()
					l.logger.Warn("archive file missing", zap.String("path", path))
				} else {
					observability.ArchiveFilesTotal.WithLabelValues("error").Inc()
					l.logger.Error("archive file unreadable", zap.String("path", path), zap.Error(err))
				}
				continue
			}
			observability.ArchiveFilesTotal.WithLabelValues("loaded").Inc()
			files = append(files, fileData{year: year, station: station, header: header, rows: rows})
			for _, c := range header {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					columns = append(columns, c)
				}
			}
		}
	}

	if len(files) == 0 {
		return nil, ErrNoData
	}

	columns = append(columns, ColYear, ColSourceFile)
	table := frame.NewTable(columns)
	rowBuf := make(map[string]any, len(columns))
	for _, f := range files {
		for _, row := range f.rows {
			clear(rowBuf)
			for i, c := range f.header {
				if i < len(row) {
					rowBuf[c] = row[i]
				}
			}
			rowBuf[ColYear] = f.year
			rowBuf[ColSourceFile] = f.station
			table.AppendRow(rowBuf)
		}
	}

	l.logger.Info("archive loaded",
		zap.Int("files", len(files)),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(columns)),
	)
	return table, nil
}

// yearFolders lists numeric subfolders of the root in ascending order.
// Non-numeric folders are skipped with a warning.
func (l *Loader) yearFolders() ([]int, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}
	var years []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		year, err := strconv.Atoi(e.Name())
		if err != nil {
			l.logger.Warn("skipping non-year folder", zap.String("name", e.Name()))
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// readCSV reads one file into header + data rows.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are tolerated; short rows leave nil cells
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv: %s", path)
	}
	return records[0], records[1:], nil
}
