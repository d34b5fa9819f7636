package library

import "github.com/bookmate/bookmate/internal/models"

// EventType identifies the kind of library mutation an Event describes
type EventType string

const (
	EventBookAdded       EventType = "book_added"
	EventBookUpdated     EventType = "book_updated"
	EventBookRemoved     EventType = "book_removed"
	EventBookFinished    EventType = "book_finished"
	EventWishlistAdded   EventType = "wishlist_added"
	EventWishlistRemoved EventType = "wishlist_removed"
	EventWishlistMoved   EventType = "wishlist_moved"
)

// Event carries a snapshot of the affected book
type Event struct {
	Type EventType
	Book models.Book
}

// Observer receives library events after each mutation. Observers are
// invoked synchronously outside the store's lock and must not block.
type Observer func(Event)

// Subscribe registers an observer for all future mutations
func (s *Store) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

func (s *Store) publish(event Event) {
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, obs := range observers {
		obs(event)
	}
}
