package core

// import.go merges an uploaded CSV into the product table.
//
// The whole file is parsed before any row is stored, so a malformed file
// changes nothing. Rows are then merged one at a time in file order:
//
//   - blank name            -> skipped, "missing name"
//   - name already present  -> skipped, "duplicate" (existing product untouched)
//   - store failure         -> skipped, "storage error", later rows continue
//   - context ended         -> this and every later row skipped, "import cancelled"
//   - otherwise             -> inserted
//
// Running the same file twice therefore adds nothing the second time.

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/Inventory/internal/logging"
)

// importColumns are the recognised header names, compared case-insensitively.
var importColumns = []string{"name", "unit", "category", "brand", "stock", "status", "image"}

// ImportProducts parses r as CSV and merges every row into the store.
//
// A parse failure anywhere in the file returns a ValidationError and no rows
// are merged. Per-row problems are reported in the result, not as an error,
// and so is a context that ends part way through: rows already merged stay
// merged and the rest are reported as cancelled.
func (s *Service) ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	importID := uuid.NewString()
	ctx, logger := logging.WithFields(ctx, "import_id", importID)
	start := time.Now()

	decoded, counter := WrapImportReader(r)
	rows, err := parseImportRows(decoded)
	if err != nil {
		logger.Warn("import rejected", "error", err, "bytes", counter.BytesRead)
		s.metrics.ImportFinished(time.Since(start), err)
		return nil, err
	}

	result := newImportResult()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn("import interrupted",
				"error", err,
				"merged", i,
				"rows", len(rows),
			)
			for _, rest := range rows[i:] {
				outcome := cancelledOutcome(rest, err)
				result.record(outcome)
				s.metrics.ImportRow(outcome.Outcome)
			}
			s.metrics.ImportFinished(time.Since(start), err)
			return result, nil
		}

		outcome := s.mergeRow(ctx, row)
		if outcome.Outcome == OutcomeSkippedError {
			logger.Error("import row failed", "line", row.Line, "name", row.Name, "error", outcome.Err)
		}
		result.record(outcome)
		s.metrics.ImportRow(outcome.Outcome)
	}

	logger.Info("import completed",
		"rows", len(rows),
		"added", result.AddedCount,
		"skipped", result.SkippedCount,
		"duplicates", len(result.Duplicates),
		"bytes", counter.BytesRead,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.metrics.ImportFinished(time.Since(start), nil)
	return result, nil
}

// mergeRow decides and applies the outcome for a single row.
func (s *Service) mergeRow(ctx context.Context, row ImportRow) ImportOutcome {
	out := ImportOutcome{Row: row}

	if row.Name == "" {
		out.Outcome = OutcomeSkippedInvalid
		out.Reason = ReasonMissingName
		return out
	}

	existing, err := s.store.FindProductByName(ctx, row.Name, 0)
	switch {
	case err == nil:
		return duplicateOutcome(out, existing.ID)
	case !isNotFound(err):
		return errorOutcome(out, err)
	}

	id, err := s.store.InsertProduct(ctx, row.product())
	if errors.Is(err, ErrConflict) {
		// Lost a race with a concurrent writer using the same name.
		if existing, ferr := s.store.FindProductByName(ctx, row.Name, 0); ferr == nil {
			return duplicateOutcome(out, existing.ID)
		}
	}
	if err != nil {
		return errorOutcome(out, err)
	}

	out.Outcome = OutcomeAdded
	out.ID = id
	return out
}

func duplicateOutcome(out ImportOutcome, existingID int64) ImportOutcome {
	out.Outcome = OutcomeSkippedDuplicate
	out.Reason = ReasonDuplicate
	out.ID = existingID
	return out
}

func errorOutcome(out ImportOutcome, err error) ImportOutcome {
	out.Outcome = OutcomeSkippedError
	out.Reason = ReasonStorageError
	out.Err = err
	return out
}

// cancelledOutcome marks a row that was never attempted because the import's
// context ended first.
func cancelledOutcome(row ImportRow, err error) ImportOutcome {
	return ImportOutcome{Row: row, Outcome: OutcomeSkippedError, Reason: ReasonCancelled, Err: err}
}

// product converts a parsed row into the record to insert.
// Import does not validate stock, so negative values are kept as given.
func (r ImportRow) product() Product {
	p := Product{
		Name:     r.Name,
		Unit:     r.Unit,
		Category: r.Category,
		Brand:    r.Brand,
		Stock:    r.Stock,
		Image:    r.Image,
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	return p
}

// parseImportRows reads the header and every data row from r.
// An empty input yields no rows and no error.
func parseImportRows(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, parseError(err)
	}

	index := columnIndex(header)

	var rows []ImportRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, buildImportRow(line, header, record, index))
	}
	return rows, nil
}

// columnIndex maps each recognised column to the first header position that
// names it. Unknown headers are ignored.
func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(importColumns))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; seen {
			continue
		}
		for _, col := range importColumns {
			if key == col {
				index[key] = i
				break
			}
		}
	}
	return index
}

func buildImportRow(line int, header, record []string, index map[string]int) ImportRow {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	raw := make(map[string]string, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if _, seen := raw[key]; seen {
			continue
		}
		if i < len(record) {
			raw[key] = record[i]
		} else {
			raw[key] = ""
		}
	}

	return ImportRow{
		Line:     line,
		Raw:      raw,
		Name:     strings.TrimSpace(cell("name")),
		Unit:     cell("unit"),
		Category: cell("category"),
		Brand:    cell("brand"),
		Stock:    CoerceStock(cell("stock")),
		Status:   optionalCell(cell("status")),
		Image:    optionalCell(cell("image")),
	}
}

func parseError(err error) error {
	return &ValidationError{Field: "", Value: err.Error(), Message: "failed to parse CSV: " + err.Error()}
}
