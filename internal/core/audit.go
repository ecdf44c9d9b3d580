package core

// audit.go writes the stock-change history.
//
// Only Update records history, and only when the request supplies a stock
// value that differs from the one read at the start of the update. The entry
// is written before the product row; if it fails the update is abandoned.

import (
	"context"
	"strings"

	"github.com/JonMunkholm/Inventory/internal/logging"
)

// resolveActor picks the label stored in changed_by: the explicit value from
// the request body, then the actor carried by ctx, then DefaultActor.
func resolveActor(ctx context.Context, explicit string) string {
	if a := strings.TrimSpace(explicit); a != "" {
		return a
	}
	if a := strings.TrimSpace(ActorFromContext(ctx)); a != "" {
		return a
	}
	return DefaultActor
}

// stockChanged reports whether an update touching stock must be audited.
func stockChanged(before Product, requested *int64) bool {
	return requested != nil && *requested != before.Stock
}

// recordStockChange appends one history entry for productID.
func (s *Service) recordStockChange(ctx context.Context, productID, oldStock, newStock int64, actor string) error {
	change := StockChange{
		ProductID: productID,
		OldStock:  oldStock,
		NewStock:  newStock,
		ChangedBy: actor,
		Timestamp: s.now().UTC(),
	}

	id, err := s.store.InsertStockChange(ctx, change)
	if err != nil {
		return storageErr("insert stock change", err)
	}

	s.metrics.StockChanged()
	logging.FromContext(ctx).Info("stock changed",
		"product_id", productID,
		"old_stock", oldStock,
		"new_stock", newStock,
		"changed_by", actor,
		"history_id", id,
	)
	return nil
}

// ProductHistory returns the stock changes recorded for id, newest first.
// History outlives its product, so an unknown id yields an empty list.
func (s *Service) ProductHistory(ctx context.Context, id int64) ([]StockChange, error) {
	changes, err := s.store.ListStockChanges(ctx, id)
	if err != nil {
		return nil, storageErr("list stock changes", err)
	}
	if changes == nil {
		changes = []StockChange{}
	}
	return changes, nil
}
