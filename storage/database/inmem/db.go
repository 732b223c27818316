// Package inmemdb holds map backed repositories, used by tests and the demo mode of the API.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
)

type (
	DB struct {
		room      *table[room.Room]
		teacher   *table[teacher.Teacher]
		course    *table[course.Course]
		timetable *table[timetable.Timetable]
		user      *table[user.User]
	}

	// table keeps rows by primary key; seq records insertion order.
	table[T any] struct {
		sync.RWMutex
		rows map[string]T
		seq  []string
	}
)

func Open() *DB {
	return &DB{
		room:      newTable[room.Room](),
		teacher:   newTable[teacher.Teacher](),
		course:    newTable[course.Course](),
		timetable: newTable[timetable.Timetable](),
		user:      newTable[user.User](),
	}
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func newID() string {
	return uuid.New().String()
}

// all returns the rows in insertion order. Callers hold the lock.
func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.rows))
	for _, id := range t.seq {
		if row, ok := t.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out
}

func (t *table[T]) insert(id string, row T) {
	t.rows[id] = row
	t.seq = append(t.seq, id)
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, x := range t.seq {
		if x == id {
			t.seq = append(t.seq[:i], t.seq[i+1:]...)
			break
		}
	}
	return true
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, x := range excludedIDs {
		if x == id {
			return true
		}
	}
	return false
}

func sortBy[T any](rows []T, key func(T) string) {
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i]) < key(rows[j]) })
}
