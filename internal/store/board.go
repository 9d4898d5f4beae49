// Package store holds the in-memory kanban board and keeps it synchronized
// with a snapshot store.
package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

// Board is the categorized job board. All mutation goes through methods that
// hold the lock; the board never hands out internal slices.
//
// One posting ID appears at most once across the whole board, regardless of
// category. Merge enforces this; Move preserves it by construction.
type Board struct {
	mu       sync.RWMutex
	columns  map[jobs.Category][]jobs.ClassifiedPosting
	ids      map[string]jobs.Category
	snapshot jobs.SnapshotStore
	logger   *zap.Logger
}

// NewBoard builds an empty board that persists through snapshots.
func NewBoard(snapshot jobs.SnapshotStore, logger *zap.Logger) *Board {
	b := &Board{
		columns:  make(map[jobs.Category][]jobs.ClassifiedPosting),
		ids:      make(map[string]jobs.Category),
		snapshot: snapshot,
		logger:   logger,
	}
	for _, c := range jobs.Categories() {
		b.columns[c] = nil
	}
	return b
}

// Hydrate replaces the board content with the persisted snapshot. Called once
// at startup; an absent snapshot leaves the board empty.
func (b *Board) Hydrate(ctx context.Context) error {
	snap, err := b.snapshot.LoadBoard(ctx)
	if err != nil {
		return fmt.Errorf("load board snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns = make(map[jobs.Category][]jobs.ClassifiedPosting)
	b.ids = make(map[string]jobs.Category)
	for _, c := range jobs.Categories() {
		b.columns[c] = nil
	}
	total := 0
	for category, postings := range snap {
		if _, err := jobs.ParseCategory(string(category)); err != nil {
			b.logger.Warn("dropping snapshot column with unknown category",
				zap.String("category", string(category)))
			continue
		}
		for _, p := range postings {
			if _, seen := b.ids[p.ID]; seen {
				continue
			}
			b.columns[category] = append(b.columns[category], p)
			b.ids[p.ID] = category
			total++
		}
	}
	b.logger.Info("board hydrated", zap.Int("postings", total))
	return nil
}

// Merge folds freshly classified postings into the board. A posting whose ID
// already exists anywhere on the board is skipped, so user moves survive
// rescrapes. New entries are prepended to their category column. Returns how
// many were added and how many were skipped as duplicates.
func (b *Board) Merge(ctx context.Context, incoming []jobs.ClassifiedPosting) (added, skipped int, err error) {
	b.mu.Lock()
	for _, p := range incoming {
		if _, seen := b.ids[p.ID]; seen {
			skipped++
			continue
		}
		category := p.Category
		if _, perr := jobs.ParseCategory(string(category)); perr != nil {
			category = jobs.CategoryReview
		}
		b.columns[category] = append([]jobs.ClassifiedPosting{p}, b.columns[category]...)
		b.ids[p.ID] = category
		added++
	}
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if added > 0 {
		if err := b.snapshot.SaveBoard(ctx, snap); err != nil {
			return added, skipped, fmt.Errorf("persist board: %w", err)
		}
	}
	b.logger.Info("merged postings into board",
		zap.Int("added", added),
		zap.Int("skipped", skipped))
	return added, skipped, nil
}

// Move relocates a posting to another category, updating its stored category
// so the change survives restarts.
func (b *Board) Move(ctx context.Context, id string, to jobs.Category) error {
	if _, err := jobs.ParseCategory(string(to)); err != nil {
		return err
	}

	b.mu.Lock()
	from, ok := b.ids[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("posting %q not on board", id)
	}
	if from == to {
		b.mu.Unlock()
		return nil
	}
	var moved jobs.ClassifiedPosting
	b.columns[from], moved = remove(b.columns[from], id)
	moved.Category = to
	b.columns[to] = append([]jobs.ClassifiedPosting{moved}, b.columns[to]...)
	b.ids[id] = to
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if err := b.snapshot.SaveBoard(ctx, snap); err != nil {
		return fmt.Errorf("persist board: %w", err)
	}
	return nil
}

// Delete removes a posting from the board.
func (b *Board) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	from, ok := b.ids[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("posting %q not on board", id)
	}
	b.columns[from], _ = remove(b.columns[from], id)
	delete(b.ids, id)
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if err := b.snapshot.SaveBoard(ctx, snap); err != nil {
		return fmt.Errorf("persist board: %w", err)
	}
	return nil
}

// Clear empties every column.
func (b *Board) Clear(ctx context.Context) error {
	b.mu.Lock()
	b.columns = make(map[jobs.Category][]jobs.ClassifiedPosting)
	b.ids = make(map[string]jobs.Category)
	for _, c := range jobs.Categories() {
		b.columns[c] = nil
	}
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if err := b.snapshot.SaveBoard(ctx, snap); err != nil {
		return fmt.Errorf("persist board: %w", err)
	}
	b.logger.Info("board cleared")
	return nil
}

// Snapshot returns a deep copy of the board.
func (b *Board) Snapshot() jobs.BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

// Size returns the total number of postings across all columns.
func (b *Board) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}

func (b *Board) snapshotLocked() jobs.BoardSnapshot {
	snap := make(jobs.BoardSnapshot, len(b.columns))
	for category, postings := range b.columns {
		column := make([]jobs.ClassifiedPosting, len(postings))
		copy(column, postings)
		snap[category] = column
	}
	return snap
}

func remove(column []jobs.ClassifiedPosting, id string) ([]jobs.ClassifiedPosting, jobs.ClassifiedPosting) {
	for i, p := range column {
		if p.ID == id {
			return append(column[:i:i], column[i+1:]...), p
		}
	}
	return column, jobs.ClassifiedPosting{}
}
