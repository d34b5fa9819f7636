package library

import (
	"fmt"

	"github.com/bookmate/bookmate/internal/models"
)

// AddToWishlist inserts a book into the wishlist. The wishlist is disjoint
// from the owned library, so an ID present in either fails with
// ErrDuplicateBook.
func (s *Store) AddToWishlist(book models.Book) error {
	s.mu.Lock()
	if _, exists := s.wishlist[book.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateBook, book.ID)
	}
	if _, owned := s.books[book.ID]; owned {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s already in library", ErrDuplicateBook, book.ID)
	}
	if book.DateAdded.IsZero() {
		book.DateAdded = s.now()
	}
	s.wishlist[book.ID] = book
	s.wishlistOrder = append(s.wishlistOrder, book.ID)
	s.mu.Unlock()

	s.publish(Event{Type: EventWishlistAdded, Book: book})
	return nil
}

// RemoveFromWishlist deletes a wishlist entry. Absent IDs are a no-op.
func (s *Store) RemoveFromWishlist(id string) {
	s.mu.Lock()
	book, exists := s.wishlist[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.wishlist, id)
	s.wishlistOrder = removeID(s.wishlistOrder, id)
	s.mu.Unlock()

	s.publish(Event{Type: EventWishlistRemoved, Book: book})
}

// MoveWishlistToLibrary transfers a wishlist entry into the owned library.
// Both the removal and the insertion happen under one lock, so either both
// apply or neither does.
func (s *Store) MoveWishlistToLibrary(id string) error {
	s.mu.Lock()
	book, exists := s.wishlist[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	if _, owned := s.books[id]; owned {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateBook, id)
	}

	delete(s.wishlist, id)
	s.wishlistOrder = removeID(s.wishlistOrder, id)

	book.DateAdded = s.now()
	s.books[id] = book
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.persist(book)
	s.publish(Event{Type: EventWishlistMoved, Book: book})
	return nil
}

// Wishlist returns a snapshot of the wishlist in insertion order
func (s *Store) Wishlist() []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Book, 0, len(s.wishlistOrder))
	for _, id := range s.wishlistOrder {
		out = append(out, s.wishlist[id])
	}
	return out
}
