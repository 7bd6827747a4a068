// Package history holds saved meals in process memory, newest first.
// Nothing is persisted: the contents are gone when the process exits.
package history

import (
	"sync"
	"time"

	"github.com/platescan/platescan/internal/meal"
)

// SavedIDTag prefixes the ids minted by Save.
const SavedIDTag = "saved"

// Store is an ordered in-memory collection of meals, most recently added first.
// It does not check id uniqueness; callers mint ids before inserting.
// The zero value is ready to use.
type Store struct {
	mu    sync.Mutex
	meals []meal.Meal
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Add prepends m.
func (s *Store) Add(m meal.Meal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals = append([]meal.Meal{m.Clone()}, s.meals...)
}

// Save clones m under a fresh "saved-<unix ms>" id, prepends the clone and returns it.
// Two saves within the same millisecond produce the same id.
func (s *Store) Save(m meal.Meal, now time.Time) meal.Meal {
	saved := m.Clone()
	saved.ID = meal.NewID(SavedIDTag, now)
	s.Add(saved)
	return saved
}

// List returns the meals, most recently added first.
// The returned slice is a copy and is never nil.
func (s *Store) List() []meal.Meal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]meal.Meal, len(s.meals))
	for i, m := range s.meals {
		out[i] = m.Clone()
	}
	return out
}

// Get returns the first meal whose id equals id.
// The scan is linear; the list is expected to stay small.
func (s *Store) Get(id string) (meal.Meal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meals {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return meal.Meal{}, false
}

// Len returns the number of stored meals.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meals)
}

// Clear removes every meal and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.meals)
	s.meals = nil
	return n
}
