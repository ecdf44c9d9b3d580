package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRecorder struct {
	mu       sync.Mutex
	rows     map[Outcome]int
	finished []error
	stock    int
}

func (r *recordingRecorder) ImportRow(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = make(map[Outcome]int)
	}
	r.rows[o]++
}

func (r *recordingRecorder) ImportFinished(_ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, err)
}

func (r *recordingRecorder) StockChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock++
}

func importString(t *testing.T, s *Service, data string) *ImportResult {
	t.Helper()
	res, err := s.ImportProducts(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	return res
}

const sampleCSV = `name,unit,category,brand,stock,status,image
Hammer,pcs,tools,Stanley,10,active,
Wrench,pcs,tools,Bahco,4,active,/uploads/wrench.png
Paint,litre,paint,Dulux,7,inactive,
`

func TestImportProducts_IsIdempotent(t *testing.T) {
	s, store := newTestService(t)

	first := importString(t, s, sampleCSV)
	assert.Equal(t, 3, first.AddedCount)
	assert.Equal(t, 0, first.SkippedCount)
	assert.Len(t, first.Added, 3)
	assert.Empty(t, first.Duplicates)

	second := importString(t, s, sampleCSV)
	assert.Equal(t, 0, second.AddedCount)
	assert.Equal(t, 3, second.SkippedCount)
	require.Len(t, second.Skipped, 3)
	require.Len(t, second.Duplicates, 3)
	for i, sk := range second.Skipped {
		assert.Equal(t, ReasonDuplicate, sk.Reason)
		assert.Equal(t, first.Added[i].ID, sk.ExistingID)
		assert.Equal(t, first.Added[i].ID, second.Duplicates[i].ExistingID)
	}
	assert.Len(t, store.products, 3)
}

func TestImportProducts_MissingName(t *testing.T) {
	s, _ := newTestService(t)

	res := importString(t, s, "name,stock\n   ,3\nValid,2\n")
	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 1, res.SkippedCount)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonMissingName, res.Skipped[0].Reason)
	assert.Equal(t, "3", res.Skipped[0].Row["stock"])
	assert.Empty(t, res.Duplicates)
}

func TestImportProducts_StoresParsedFields(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	data := "NAME , Stock,Extra,name,Category,Image\n  Lamp ,12.7,ignored,Other,lighting,\n"
	res := importString(t, s, data)
	require.Equal(t, 1, res.AddedCount)

	p, err := s.GetProduct(ctx, res.Added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", p.Name, "first name column wins and is trimmed")
	assert.Equal(t, int64(12), p.Stock, "decimals truncate")
	assert.Equal(t, "lighting", p.Category)
	assert.Equal(t, "", p.Unit, "missing column defaults to empty")
	assert.Nil(t, p.Image, "empty image stored as null")
	assert.Equal(t, "", p.Status)
}

func TestImportProducts_StockCoercion(t *testing.T) {
	tests := []struct {
		cell string
		want int64
	}{
		{"abc", 0},
		{"", 0},
		{"-3", -3},
		{" 15 ", 15},
		{`="15"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			s, _ := newTestService(t)
			res := importString(t, s, "name,stock\nItem,"+tt.cell+"\n")
			require.Equal(t, 1, res.AddedCount, "a malformed stock never rejects a row")

			p, err := s.GetProduct(context.Background(), res.Added[0].ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Stock)
		})
	}
}

func TestImportProducts_DuplicateWithinFile(t *testing.T) {
	s, _ := newTestService(t)

	res := importString(t, s, "name\nBolt\nBOLT\n")
	assert.Equal(t, 1, res.AddedCount)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "BOLT", res.Duplicates[0].Name)
	assert.Equal(t, res.Added[0].ID, res.Duplicates[0].ExistingID)
}

func TestImportProducts_StorageErrorIsolated(t *testing.T) {
	s, store := newTestService(t)
	store.insertErr["broken"] = errors.New("constraint exploded")

	res := importString(t, s, "name\nFirst\nBroken\nLast\n")
	assert.Equal(t, 2, res.AddedCount)
	assert.Equal(t, 1, res.SkippedCount)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonStorageError, res.Skipped[0].Reason)
	assert.Contains(t, res.Skipped[0].Error, "constraint exploded")
	assert.Equal(t, "First", res.Added[0].Name)
	assert.Equal(t, "Last", res.Added[1].Name)
}

func TestImportProducts_EmptyInput(t *testing.T) {
	for _, data := range []string{"", "name,stock\n", "\xEF\xBB\xBF"} {
		s, _ := newTestService(t)
		res := importString(t, s, data)
		assert.Zero(t, res.AddedCount)
		assert.Zero(t, res.SkippedCount)
		assert.NotNil(t, res.Added)
		assert.NotNil(t, res.Skipped)
		assert.NotNil(t, res.Duplicates)
	}
}

func TestImportProducts_BOMHeader(t *testing.T) {
	s, _ := newTestService(t)
	res := importString(t, s, "\xEF\xBB\xBFname,stock\nCable,3\n")
	require.Equal(t, 1, res.AddedCount)
	assert.Equal(t, "Cable", res.Added[0].Name)
}

func TestImportProducts_ReadFailureMergesNothing(t *testing.T) {
	s, store := newTestService(t)

	r := io.MultiReader(strings.NewReader("name\nA\nB\n"), iotest.ErrReader(errors.New("connection reset")))
	_, err := s.ImportProducts(context.Background(), r)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "failed to parse CSV")
	assert.Equal(t, "FILE002", MapError(err).Code)
	assert.Empty(t, store.products)
}

func TestImportProducts_ExportReimportIsAllDuplicates(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, ProductFields{Name: ptr(`Quote "Pro"`), Unit: ptr("pcs"), Stock: ptr(int64(3))})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductFields{Name: ptr("Comma, Inc"), Image: ptr("/uploads/c.png")})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductFields{Name: ptr(`="A1"`), Unit: ptr("  box"), Brand: ptr(" Acme ")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportProducts(ctx, &buf))

	res, err := s.ImportProducts(ctx, &buf)
	require.NoError(t, err)
	assert.Zero(t, res.AddedCount)
	assert.Equal(t, 3, res.SkippedCount)
	assert.Len(t, res.Duplicates, 3)
	assert.Len(t, store.products, 3)

	// Into an empty store the same export recreates every field.
	other, _ := newTestService(t)
	var again bytes.Buffer
	require.NoError(t, s.ExportProducts(ctx, &again))
	res, err = other.ImportProducts(ctx, &again)
	require.NoError(t, err)
	require.Equal(t, 3, res.AddedCount)

	orig, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	copied, err := other.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	for i := range orig {
		orig[i].ID, copied[i].ID = 0, 0
	}
	assert.Equal(t, orig, copied)
}

func TestImportProducts_Busy(t *testing.T) {
	limiter := NewImportLimiter(1, 20*time.Millisecond)
	s, _ := newTestService(t, WithImportLimiter(limiter))

	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	_, err := s.ImportProducts(context.Background(), strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, "UPL002", MapError(err).Code)
}

func TestImportProducts_RecordsMetrics(t *testing.T) {
	rec := &recordingRecorder{}
	s, store := newTestService(t, WithRecorder(rec))
	store.insertErr["bad"] = errors.New("boom")

	importString(t, s, "name\nGood\n\nBad\ngood\n,\n")

	assert.Equal(t, 1, rec.rows[OutcomeAdded])
	assert.Equal(t, 1, rec.rows[OutcomeSkippedDuplicate])
	assert.Equal(t, 1, rec.rows[OutcomeSkippedError])
	assert.Equal(t, 1, rec.rows[OutcomeSkippedInvalid])
	require.Len(t, rec.finished, 1)
	assert.NoError(t, rec.finished[0])
}

func TestImportProducts_CancelledMidway(t *testing.T) {
	tests := []struct {
		name        string
		cancelAfter string
		wantAdded   []string
		wantSkipped int
	}{
		{"after first row", "First", []string{"First"}, 3},
		{"after third row", "Third", []string{"First", "Second", "Third"}, 1},
		{"after last row", "Fourth", []string{"First", "Second", "Third", "Fourth"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRecorder{}
			s, store := newTestService(t, WithRecorder(rec))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			store.afterInsert = func(name string) {
				if name == tt.cancelAfter {
					cancel()
				}
			}

			res, err := s.ImportProducts(ctx, strings.NewReader("name\nFirst\nSecond\nThird\nFourth\n"))
			require.NoError(t, err)
			require.NotNil(t, res)

			var added []string
			for _, a := range res.Added {
				added = append(added, a.Name)
			}
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantSkipped, res.SkippedCount)
			require.Len(t, res.Skipped, tt.wantSkipped)
			for _, sk := range res.Skipped {
				assert.Equal(t, ReasonCancelled, sk.Reason)
				assert.Equal(t, context.Canceled.Error(), sk.Error)
			}
			assert.Len(t, store.products, len(tt.wantAdded))
			assert.Equal(t, tt.wantSkipped, rec.rows[OutcomeSkippedError])
		})
	}
}

func TestParseImportRows_LineNumbers(t *testing.T) {
	rows, err := parseImportRows(strings.NewReader("name,stock\nA,1\n\nB,2\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line)
}
