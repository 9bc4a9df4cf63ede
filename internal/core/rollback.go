package core

import (
	"context"
	"fmt"
	"log/slog"

	"menu-import-service/internal/domain"
)

// applyRollback replays the compensation log in reverse order: creates are
// deleted, updates get their snapshot written back. Best effort: a failed
// entry is logged and skipped so the remaining entries still run. Returns
// how many entries applied cleanly.
func applyRollback(ctx context.Context, menu MenuWriter, ops []domain.RollbackOperation) int {
	applied := 0
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if err := applyRollbackOp(ctx, menu, op); err != nil {
			slog.Warn("rollback entry failed, skipping",
				"entity", op.EntityType,
				"action", op.Action,
				"id", op.ID,
				"error", err,
			)
			continue
		}
		applied++
	}
	return applied
}

func applyRollbackOp(ctx context.Context, menu MenuWriter, op domain.RollbackOperation) error {
	switch op.Action {
	case domain.ActionCreate:
		return deleteCreated(ctx, menu, op)
	case domain.ActionUpdate:
		return restoreUpdated(ctx, menu, op)
	default:
		return fmt.Errorf("unknown rollback action %q", op.Action)
	}
}

func deleteCreated(ctx context.Context, menu MenuWriter, op domain.RollbackOperation) error {
	switch op.EntityType {
	case domain.KindItem:
		return menu.DeleteItem(ctx, op.ID)
	case domain.KindItemSize:
		return menu.DeleteItemSize(ctx, op.ID)
	case domain.KindModifierGroup:
		return menu.DeleteModifierGroup(ctx, op.ID)
	case domain.KindModifier:
		return menu.DeleteModifier(ctx, op.ID)
	default:
		return fmt.Errorf("no delete for entity %q", op.EntityType)
	}
}

func restoreUpdated(ctx context.Context, menu MenuWriter, op domain.RollbackOperation) error {
	// Only items are updated in place during a save.
	if op.EntityType != domain.KindItem {
		return fmt.Errorf("no restore for entity %q", op.EntityType)
	}
	if len(op.PreviousData) == 0 {
		return fmt.Errorf("update entry for item %s has no snapshot", op.ID)
	}
	return menu.RestoreItem(ctx, op.ID, op.PreviousData)
}
