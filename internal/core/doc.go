// Package core holds the inventory domain logic, independent of HTTP and of
// the storage engine.
//
// # Service
//
// [Service] is the single entry point used by the web layer. It is built over
// a [Store] and optional [Option] values:
//
//	svc := core.NewService(store,
//	    core.WithImportLimiter(core.NewImportLimiter(4, 30*time.Second)),
//	    core.WithRecorder(metrics),
//	)
//
// # Bulk Import
//
// [Service.ImportProducts] decodes a CSV stream (BOM stripped, invalid UTF-8
// replaced), parses every row, then merges rows one by one. Each row ends up
// added, skipped as a duplicate, skipped as invalid, or skipped after a
// storage error. Existing products are never modified by an import.
//
// # Stock History
//
// [Service.UpdateProduct] writes a [StockChange] before the product row when
// the supplied stock differs from the stored value. If that write fails the
// product is left unchanged.
//
// # Error Handling
//
// Domain failures are typed: [ValidationError], [UploadRejectedError],
// [StorageError], and the sentinels [ErrNotFound], [ErrConflict] and
// [ErrTooManyImports]. [MapError] turns any of them into a [UserMessage]
// with a support code:
//
//   - VAL001: invalid request field
//   - DB002: name already exists
//   - NF001: product not found
//   - FILE001-FILE006: upload problems
//   - UPL002: import capacity exhausted
package core
