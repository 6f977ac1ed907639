package taskstore

import (
	"context"
	"fmt"
	"strings"

	"backlog-lite/internal/ordinal"
	"backlog-lite/internal/task"
)

// DropUpdates computes the ordinal updates for dropping dropped into
// cards (the column's visible order without it) at index. Nothing is
// written.
func (s *Store) DropUpdates(cards []*task.Task, dropped *task.Task, index int) []ordinal.Update {
	return ordinal.CalculateForDrop(cards, dropped, index)
}

// ApplyOrdinalUpdates writes a batch of ordinal updates. Ordinal changes
// are board housekeeping and leave updated_date alone. It stops at the
// first failure and returns the tasks written so far.
func (s *Store) ApplyOrdinalUpdates(ctx context.Context, updates []ordinal.Update) ([]*task.Task, error) {
	written := make([]*task.Task, 0, len(updates))
	for _, u := range updates {
		t, err := s.update(ctx, u.TaskID, task.Patch{Ordinal: task.Float(u.Ordinal)}, "", false)
		if err != nil {
			return written, fmt.Errorf("setting ordinal of %s: %w", u.TaskID, err)
		}
		written = append(written, t)
	}
	return written, nil
}

// Column returns the active tasks whose status matches status, in board
// order.
func (s *Store) Column(ctx context.Context, status string) ([]*task.Task, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	var column []*task.Task
	for _, t := range tasks {
		if strings.EqualFold(t.Status, status) {
			column = append(column, t)
		}
	}
	return column, nil
}

// Reorder drops the task id into the status column at index, changing
// its status first when it comes from another column. It returns the
// ordinal updates that were written.
func (s *Store) Reorder(ctx context.Context, id, status string, index int) ([]ordinal.Update, error) {
	dropped, err := s.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if dropped.Folder != task.FolderTasks {
		return nil, fmt.Errorf("%s is in %s: %w", dropped.ID, dropped.Folder, task.ErrInvalidFolder)
	}
	if status == "" {
		status = dropped.Status
	}

	column, err := s.Column(ctx, status)
	if err != nil {
		return nil, err
	}
	cards := column[:0:0]
	for _, t := range column {
		if t.ID != dropped.ID {
			cards = append(cards, t)
		}
	}

	if !strings.EqualFold(dropped.Status, status) {
		if _, err := s.Update(ctx, dropped.ID, task.Patch{Status: task.String(status)}, dropped.ContentHash); err != nil {
			return nil, err
		}
	}

	updates := s.DropUpdates(cards, dropped, index)
	if _, err := s.ApplyOrdinalUpdates(ctx, updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// RepairOrdinals renumbers the status column when it has missing or
// non-increasing ordinals. An empty status repairs every column.
func (s *Store) RepairOrdinals(ctx context.Context, status string) ([]ordinal.Update, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]*task.Task)
	var order []string
	for _, t := range tasks {
		key := strings.ToLower(strings.TrimSpace(t.Status))
		if status != "" && key != strings.ToLower(strings.TrimSpace(status)) {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	var updates []ordinal.Update
	for _, key := range order {
		updates = append(updates, ordinal.ResolveConflicts(groups[key])...)
	}
	if _, err := s.ApplyOrdinalUpdates(ctx, updates); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		s.logger.Info("repaired ordinals", "status", status, "updated", len(updates))
	}
	return updates, nil
}
