package core

import "time"

// DefaultActor is recorded on stock changes when the caller does not name one.
const DefaultActor = "system"

// Product is a single inventory record.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	Stock    int64   `json:"stock"`
	Status   string  `json:"status"`
	Image    *string `json:"image"`
}

// StockChange is an append-only history entry written when an update changes stock.
type StockChange struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	OldStock  int64     `json:"old_stock"`
	NewStock  int64     `json:"new_stock"`
	ChangedBy string    `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductFilter narrows List results. Empty fields are not applied.
// Both filters combine with AND.
type ProductFilter struct {
	Category string // exact match
	Search   string // case-insensitive substring of name
}

// ProductFields carries the writable product attributes of a create or update
// request. A nil pointer means the field was not supplied; a non-nil pointer is
// applied as given, including empty strings and zero.
type ProductFields struct {
	Name     *string
	Unit     *string
	Category *string
	Brand    *string
	Stock    *int64
	Status   *string
	Image    *string
}

// ProductUpdate is a partial update plus the actor label used for the audit entry.
type ProductUpdate struct {
	ProductFields
	ChangedBy string
}

// Outcome classifies what happened to one imported row.
type Outcome string

const (
	OutcomeAdded            Outcome = "added"
	OutcomeSkippedDuplicate Outcome = "skipped-duplicate"
	OutcomeSkippedInvalid   Outcome = "skipped-invalid"
	OutcomeSkippedError     Outcome = "skipped-error"
)

// Skip reasons reported to clients.
const (
	ReasonMissingName  = "missing name"
	ReasonDuplicate    = "duplicate"
	ReasonStorageError = "storage error"
	ReasonCancelled    = "import cancelled"
)

// ImportRow is one parsed CSV data row, normalised but not yet persisted.
type ImportRow struct {
	Line     int               // 1-based line number in the file (header is line 1)
	Raw      map[string]string // original header -> cell value
	Name     string            // trimmed
	Unit     string
	Category string
	Brand    string
	Stock    int64
	Status   *string
	Image    *string
}

// ImportOutcome records the result for one ImportRow.
type ImportOutcome struct {
	Row     ImportRow
	Outcome Outcome
	Reason  string
	ID      int64 // new id when added, existing id when duplicate
	Err     error // storage failure when Outcome is OutcomeSkippedError
}

// AddedRow is a row that produced a new product.
type AddedRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SkippedRow is a row that did not produce a product.
type SkippedRow struct {
	Row        map[string]string `json:"row"`
	Reason     string            `json:"reason"`
	ExistingID int64             `json:"existingId,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// DuplicateRow names a row whose product already existed.
type DuplicateRow struct {
	Name       string `json:"name"`
	ExistingID int64  `json:"existingId"`
}

// ImportResult is the aggregate response for one import run.
type ImportResult struct {
	AddedCount   int            `json:"addedCount"`
	SkippedCount int            `json:"skippedCount"`
	Added        []AddedRow     `json:"added"`
	Skipped      []SkippedRow   `json:"skipped"`
	Duplicates   []DuplicateRow `json:"duplicates"`
}

func newImportResult() *ImportResult {
	return &ImportResult{
		Added:      []AddedRow{},
		Skipped:    []SkippedRow{},
		Duplicates: []DuplicateRow{},
	}
}

// record folds a single row outcome into the aggregate.
func (r *ImportResult) record(o ImportOutcome) {
	switch o.Outcome {
	case OutcomeAdded:
		r.AddedCount++
		r.Added = append(r.Added, AddedRow{ID: o.ID, Name: o.Row.Name})
	case OutcomeSkippedDuplicate:
		r.SkippedCount++
		r.Duplicates = append(r.Duplicates, DuplicateRow{Name: o.Row.Name, ExistingID: o.ID})
		r.Skipped = append(r.Skipped, SkippedRow{Row: o.Row.Raw, Reason: o.Reason, ExistingID: o.ID})
	case OutcomeSkippedError:
		r.SkippedCount++
		sr := SkippedRow{Row: o.Row.Raw, Reason: o.Reason}
		if o.Err != nil {
			sr.Error = o.Err.Error()
		}
		r.Skipped = append(r.Skipped, sr)
	default:
		r.SkippedCount++
		r.Skipped = append(r.Skipped, SkippedRow{Row: o.Row.Raw, Reason: o.Reason})
	}
}
