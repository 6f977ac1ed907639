// Package ordinal computes sparse sort keys for task cards.
//
// Ordinals are fractional: a card dropped between two neighbours gets a
// value inside their gap, so a reorder normally rewrites only the cards
// that had no ordinal yet plus the dropped card. Nothing here touches
// disk; callers hand the resulting updates to the write path.
package ordinal

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"backlog-lite/internal/task"
)

// DefaultStep is the spacing between freshly assigned ordinals.
const DefaultStep = 1000.0

// Update sets the ordinal of one task.
type Update struct {
	TaskID  string  `json:"task_id"`
	Ordinal float64 `json:"ordinal"`
}

// HasOrdinal reports whether t carries a usable ordinal. Zero counts.
func HasOrdinal(t *task.Task) bool {
	return t.Ordinal != nil && !math.IsNaN(*t.Ordinal)
}

// Compare orders cards: those with an ordinal first by ascending value,
// then those without by id. Equal ordinals fall back to the id, so the
// order is total for distinct ids.
func Compare(a, b *task.Task) int {
	ha, hb := HasOrdinal(a), HasOrdinal(b)
	switch {
	case ha && hb:
		if c := cmp.Compare(*a.Ordinal, *b.Ordinal); c != 0 {
			return c
		}
	case ha:
		return -1
	case hb:
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort orders tasks in place with Compare.
func Sort(tasks []*task.Task) {
	slices.SortStableFunc(tasks, Compare)
}

// CalculateForDrop returns the updates needed after inserting dropped into
// cards at index. cards is the visible order without the dropped card.
//
// Every card from the first ordinal-less one up to the drop point is
// assigned a value between the last ordinal before that run and the first
// ordinal after the drop point, so none of them sorts to the end on the
// next load. If that gap is too narrow, the whole list is renumbered.
func CalculateForDrop(cards []*task.Task, dropped *task.Task, index int) []Update {
	index = max(0, min(index, len(cards)))
	list := make([]*task.Task, 0, len(cards)+1)
	list = append(list, cards[:index]...)
	list = append(list, dropped)
	list = append(list, cards[index:]...)

	first := index
	for i := 0; i < index; i++ {
		if !HasOrdinal(list[i]) {
			first = i
			break
		}
	}

	base := 0.0
	for i := first - 1; i >= 0; i-- {
		if HasOrdinal(list[i]) {
			base = *list[i].Ordinal
			break
		}
	}

	count := index - first + 1
	step := DefaultStep
	for i := index + 1; i < len(list); i++ {
		if HasOrdinal(list[i]) {
			step = min(DefaultStep, (*list[i].Ordinal-base)/float64(count+1))
			break
		}
	}
	if !(step > 0) {
		return Renumber(list)
	}

	updates := make([]Update, 0, count)
	prev := base
	for k := 0; k < count; k++ {
		v := base + step*float64(k+1)
		if v <= prev {
			// The gap is below float resolution.
			return Renumber(list)
		}
		updates = append(updates, Update{TaskID: list[first+k].ID, Ordinal: v})
		prev = v
	}
	return updates
}

// HasConflicts reports whether group, in its visible order, has a card
// without an ordinal or an ordinal that does not increase strictly.
func HasConflicts(group []*task.Task) bool {
	for i, t := range group {
		if !HasOrdinal(t) {
			return true
		}
		if i > 0 && *t.Ordinal <= *group[i-1].Ordinal {
			return true
		}
	}
	return false
}

// ResolveConflicts repairs a group with missing or duplicate ordinals by
// spacing the whole group evenly in its current order. A group without
// conflicts yields no updates.
func ResolveConflicts(group []*task.Task) []Update {
	if !HasConflicts(group) {
		return nil
	}
	return Renumber(group)
}

// Renumber assigns DefaultStep, 2*DefaultStep, ... in order and returns
// the updates for cards whose ordinal actually changes.
func Renumber(list []*task.Task) []Update {
	var updates []Update
	for i, t := range list {
		v := DefaultStep * float64(i+1)
		if HasOrdinal(t) && *t.Ordinal == v {
			continue
		}
		updates = append(updates, Update{TaskID: t.ID, Ordinal: v})
	}
	return updates
}

// Apply returns copies of tasks with updates applied, for previewing a
// batch before it is written.
func Apply(tasks []*task.Task, updates []Update) []*task.Task {
	byID := make(map[string]float64, len(updates))
	for _, u := range updates {
		byID[u.TaskID] = u.Ordinal
	}
	out := make([]*task.Task, len(tasks))
	for i, t := range tasks {
		c := t.Clone()
		if v, ok := byID[t.ID]; ok {
			c.Ordinal = &v
		}
		out[i] = c
	}
	return out
}
