package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// MappingStore serves the business-area to division lookup as a replaceable
// read-only snapshot. It starts empty, which makes every division resolve to
// "Others" — the degraded-but-working mode for a missing mapping file.
type MappingStore struct {
	log     zerolog.Logger
	current atomic.Pointer[map[string]string]
}

// NewMappingStore creates an empty mapping store.
func NewMappingStore(log zerolog.Logger) *MappingStore {
	s := &MappingStore{log: log}
	empty := map[string]string{}
	s.current.Store(&empty)
	return s
}

// Mapping implements ledger.MappingSource. Never nil.
func (s *MappingStore) Mapping() map[string]string {
	return *s.current.Load()
}

// LoadFile replaces the mapping from an .xlsx or .csv file. On error the
// previous mapping stays in place; the caller decides whether to log and
// carry on (the usual choice) or abort.
func (s *MappingStore) LoadFile(path string) error {
	var (
		mapping map[string]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		mapping, err = readMappingXLSX(path)
	case ".csv":
		mapping, err = readMappingCSV(path)
	default:
		return fmt.Errorf("unsupported mapping file type %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	s.current.Store(&mapping)
	s.log.Info().Int("entries", len(mapping)).Str("path", path).Msg("Division mapping loaded")
	return nil
}

// readMappingXLSX reads the first sheet of a division-mapping workbook. The
// header row must contain a business-area column ("Business Area" or
// "RBUSA") and a "Division" column, in any order and any case.
func readMappingXLSX(path string) (map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("mapping workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("mapping sheet %q is empty", sheets[0])
	}

	areaCol, divCol, err := mappingHeaderColumns(rows[0])
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		if areaCol >= len(row) || divCol >= len(row) {
			continue
		}
		area := strings.TrimSpace(row[areaCol])
		if area == "" {
			continue
		}
		mapping[area] = strings.TrimSpace(row[divCol])
	}
	return mapping, nil
}

// readMappingCSV reads a two-column mapping export, comma or semicolon
// delimited, with the same header contract as the workbook form.
func readMappingCSV(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	if i := strings.IndexByte(string(data), '\n'); i > 0 && strings.Contains(string(data[:i]), ";") {
		reader.Comma = ';'
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing mapping csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("mapping csv is empty")
	}

	areaCol, divCol, err := mappingHeaderColumns(records[0])
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(records)-1)
	for _, record := range records[1:] {
		if areaCol >= len(record) || divCol >= len(record) {
			continue
		}
		area := strings.TrimSpace(record[areaCol])
		if area == "" {
			continue
		}
		mapping[area] = strings.TrimSpace(record[divCol])
	}
	return mapping, nil
}

func mappingHeaderColumns(header []string) (areaCol, divCol int, err error) {
	areaCol, divCol = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "business area", "business_area", "rbusa":
			if areaCol == -1 {
				areaCol = i
			}
		case "division":
			if divCol == -1 {
				divCol = i
			}
		}
	}
	if areaCol == -1 || divCol == -1 {
		return 0, 0, fmt.Errorf("mapping header must contain business-area and division columns, got %v", header)
	}
	return areaCol, divCol, nil
}
