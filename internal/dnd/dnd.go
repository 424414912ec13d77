// Package dnd turns a finished drag gesture into at most one board
// transition.
//
// The presentation layer reports a drag as a single DragEnd event once the
// pointer is released. Each draggable and droppable tags itself with the id
// of the column that owns it when the drag starts; those tags travel in the
// event as ActiveContainerID and OverContainerID. The reconciler trusts the
// tags rather than searching the board, because by the time the event
// arrives the dragged task may no longer be where a search would find it.
//
// Positions are resolved by the store inside the transition itself. The
// board copy the reconciler reads only classifies the drop and explains
// why a drop was ignored.
package dnd

import (
	"context"
	"log/slog"

	"github.com/ldi/corkboard/pkg/models"
)

// Store is the part of the board store the reconciler drives.
type Store interface {
	CurrentBoard() (*models.Board, bool)
	ReorderTask(ctx context.Context, columnID, activeID, overID string) (oldIndex, newIndex int, ok bool)
	DropTask(ctx context.Context, activeID, fromColumnID, toColumnID, overID string) (oldIndex, newIndex int, ok bool)
}

// DragEnd describes where a dragged task was released. OverID is empty when
// the task was dropped outside any target. OverID equals OverContainerID (or
// names a column) when the drop landed on a column body instead of a task.
type DragEnd struct {
	ActiveID          string `json:"active_id"`
	ActiveContainerID string `json:"active_container_id"`
	OverID            string `json:"over_id,omitempty"`
	OverContainerID   string `json:"over_container_id,omitempty"`
}

type Outcome string

const (
	Noop      Outcome = "noop"
	Reordered Outcome = "reordered"
	Moved     Outcome = "moved"
)

// Result describes the transition a drag produced.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`
	FromID   string  `json:"from_column_id,omitempty"`
	ToID     string  `json:"to_column_id,omitempty"`
	OldIndex int     `json:"old_index"`
	NewIndex int     `json:"new_index"`
}

func noop(reason string) Result {
	return Result{Outcome: Noop, Reason: reason, OldIndex: -1, NewIndex: -1}
}

type Reconciler struct {
	store  Store
	logger *slog.Logger
}

func NewReconciler(store Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// Apply reconciles one drag-end event against the live board.
func (r *Reconciler) Apply(ctx context.Context, ev DragEnd) Result {
	res := r.apply(ctx, ev)
	r.logger.Debug("drag reconciled",
		"active", ev.ActiveID,
		"over", ev.OverID,
		"outcome", res.Outcome,
		"reason", res.Reason,
	)
	return res
}

func (r *Reconciler) apply(ctx context.Context, ev DragEnd) Result {
	if ev.OverID == "" {
		return noop("dropped outside any target")
	}
	if ev.ActiveID == ev.OverID {
		return noop("dropped on itself")
	}

	b, ok := r.store.CurrentBoard()
	if !ok {
		return noop("no current board")
	}

	src, ok := b.Column(ev.ActiveContainerID)
	if !ok {
		return noop("source column unknown")
	}

	overContainer := ev.OverContainerID
	if overContainer == "" {
		// A column body tags itself with its own id.
		if _, isColumn := b.Column(ev.OverID); isColumn {
			overContainer = ev.OverID
		}
	}
	dest, ok := b.Column(overContainer)
	if !ok {
		return noop("destination column unknown")
	}

	if src.IndexOf(ev.ActiveID) < 0 {
		return noop("dragged task is no longer in its source column")
	}

	if src.ID == dest.ID {
		if dest.IndexOf(ev.OverID) < 0 {
			return noop("drop target is not a task of the column")
		}
		oldIndex, newIndex, ok := r.store.ReorderTask(ctx, src.ID, ev.ActiveID, ev.OverID)
		if !ok {
			return noop("column changed before the drop applied")
		}
		return Result{Outcome: Reordered, FromID: src.ID, ToID: dest.ID, OldIndex: oldIndex, NewIndex: newIndex}
	}

	overTask := ev.OverID
	if droppedOnColumn(b, ev.OverID, dest.ID) {
		overTask = ""
	} else if dest.IndexOf(ev.OverID) < 0 {
		return noop("drop target is not a task of the destination column")
	}
	oldIndex, newIndex, ok := r.store.DropTask(ctx, ev.ActiveID, src.ID, dest.ID, overTask)
	if !ok {
		return noop("board changed before the drop applied")
	}
	return Result{Outcome: Moved, FromID: src.ID, ToID: dest.ID, OldIndex: oldIndex, NewIndex: newIndex}
}

func droppedOnColumn(b *models.Board, overID, destID string) bool {
	if overID == destID {
		return true
	}
	_, ok := b.Column(overID)
	return ok
}
