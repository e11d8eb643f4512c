package repository

import (
	"fmt"
	"sync"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// AuctionStore defines the persistence interface for the auction site
type AuctionStore interface {
	CreateUser(user model.User) error
	GetUserByUsername(username string) (model.User, error)
	GetUserByID(userID string) (model.User, error)

	CreateSession(session model.Session) error
	GetSession(sessionID string) (model.Session, error)
	DeleteSession(sessionID string) error

	ListCategories() ([]model.Category, error)
	GetCategoryByName(name string) (model.Category, error)

	CreateListing(listing model.Listing) error
	GetListing(listingID string) (model.Listing, error)
	ListActiveListings() ([]model.Listing, error)
	ListActiveListingsByCategory(categoryID string) ([]model.Listing, error)
	PlaceBid(listingID string, bid model.Bid) error
	CloseListing(listingID string) error

	AddWatcher(listingID, userID string) error
	RemoveWatcher(listingID, userID string) error
	IsWatching(listingID, userID string) (bool, error)
	ListWatchedByUser(userID string) ([]model.Listing, error)

	AddComment(comment model.Comment) error
	ListCommentsByListing(listingID string) ([]model.Comment, error)
	ListBidsByListing(listingID string) ([]model.Bid, error)
}

// MemoryStore is a concurrency-safe in-memory implementation of AuctionStore.
// Insertion order of listings and categories is preserved so feeds render
// deterministically.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]model.User // key: userID
	usernames     map[string]string     // key: username -> userID
	sessions      map[string]model.Session
	categories    map[string]model.Category // key: categoryID
	categoryOrder []string
	listings      map[string]model.Listing // key: listingID
	listingOrder  []string
	bids          map[string][]model.Bid // key: listingID -> append-only history
	watchers      map[string]map[string]struct{} // key: listingID -> set of userIDs
	watched       map[string][]string            // key: userID -> listingIDs in watch order
	comments      map[string][]model.Comment     // key: listingID
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]model.User),
		usernames:  make(map[string]string),
		sessions:   make(map[string]model.Session),
		categories: make(map[string]model.Category),
		listings:   make(map[string]model.Listing),
		bids:       make(map[string][]model.Bid),
		watchers:   make(map[string]map[string]struct{}),
		watched:    make(map[string][]string),
		comments:   make(map[string][]model.Comment),
	}
}

// CreateUser stores a new user, rejecting duplicate usernames
func (s *MemoryStore) CreateUser(user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[user.Username]; taken {
		return fmt.Errorf("create user %s: %w", user.Username, auctionerrors.ErrUsernameTaken)
	}
	s.users[user.UserID] = user
	s.usernames[user.Username] = user.UserID
	return nil
}

// GetUserByUsername looks a user up by their unique username
func (s *MemoryStore) GetUserByUsername(username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", username, auctionerrors.ErrUserNotFound)
	}
	return s.users[id], nil
}

// GetUserByID looks a user up by id
func (s *MemoryStore) GetUserByID(userID string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user id %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return user, nil
}

// CreateSession stores a new session
func (s *MemoryStore) CreateSession(session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

// GetSession returns a session by id
func (s *MemoryStore) GetSession(sessionID string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return model.Session{}, fmt.Errorf("get session %s: %w", sessionID, auctionerrors.ErrSessionNotFound)
	}
	return session, nil
}

// DeleteSession removes a session; deleting a missing session is a no-op
func (s *MemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// ListCategories returns all categories in insertion order
func (s *MemoryStore) ListCategories() ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cats := make([]model.Category, 0, len(s.categoryOrder))
	for _, id := range s.categoryOrder {
		cats = append(cats, s.categories[id])
	}
	return cats, nil
}

// GetCategoryByName resolves a category by its exact name
func (s *MemoryStore) GetCategoryByName(name string) (model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.categoryOrder {
		if s.categories[id].Name == name {
			return s.categories[id], nil
		}
	}
	return model.Category{}, fmt.Errorf("get category %s: %w", name, auctionerrors.ErrCategoryNotFound)
}

// CreateListing stores a new listing
func (s *MemoryStore) CreateListing(listing model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listing.ListingID] = listing
	s.listingOrder = append(s.listingOrder, listing.ListingID)
	if listing.CurrentBid != nil {
		s.bids[listing.ListingID] = append(s.bids[listing.ListingID], *listing.CurrentBid)
	}
	return nil
}

// GetListing returns a listing by id
func (s *MemoryStore) GetListing(listingID string) (model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getListingLocked(listingID)
}

func (s *MemoryStore) getListingLocked(listingID string) (model.Listing, error) {
	listing, ok := s.listings[listingID]
	if !ok {
		return model.Listing{}, fmt.Errorf("get listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	return copyListing(listing), nil
}

// ListActiveListings returns all active listings in insertion order
func (s *MemoryStore) ListActiveListings() ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]model.Listing, 0, len(s.listingOrder))
	for _, id := range s.listingOrder {
		if l := s.listings[id]; l.IsActive {
			active = append(active, copyListing(l))
		}
	}
	return active, nil
}

// ListActiveListingsByCategory returns active listings in one category
func (s *MemoryStore) ListActiveListingsByCategory(categoryID string) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]model.Listing, 0)
	for _, id := range s.listingOrder {
		if l := s.listings[id]; l.IsActive && l.CategoryID == categoryID {
			active = append(active, copyListing(l))
		}
	}
	return active, nil
}

// PlaceBid atomically compares the bid against the listing's current bid and
// replaces it on success. The check and the replace run under a single write
// lock so two concurrent bids can never both pass against a stale value.
func (s *MemoryStore) PlaceBid(listingID string, bid model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("place bid on listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	if listing.CurrentBid != nil && bid.Amount <= listing.CurrentBid.Amount {
		return fmt.Errorf("place bid on listing %s: %w", listingID, auctionerrors.ErrBidTooLow)
	}
	if listing.CurrentBid == nil && bid.Amount <= 0 {
		return fmt.Errorf("place bid on listing %s: %w", listingID, auctionerrors.ErrBidTooLow)
	}

	s.bids[listingID] = append(s.bids[listingID], bid)
	listing.CurrentBid = &bid
	s.listings[listingID] = listing
	return nil
}

// CloseListing marks a listing inactive. The transition is terminal.
func (s *MemoryStore) CloseListing(listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("close listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	listing.IsActive = false
	s.listings[listingID] = listing
	return nil
}

// AddWatcher adds a user to a listing's watcher set; already watching is a
// no-op
func (s *MemoryStore) AddWatcher(listingID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[listingID]; !ok {
		return fmt.Errorf("watch listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	if s.watchers[listingID] == nil {
		s.watchers[listingID] = make(map[string]struct{})
	}
	if _, watching := s.watchers[listingID][userID]; watching {
		return nil
	}
	s.watchers[listingID][userID] = struct{}{}
	s.watched[userID] = append(s.watched[userID], listingID)
	return nil
}

// RemoveWatcher removes a user from a listing's watcher set; not watching is
// a no-op
func (s *MemoryStore) RemoveWatcher(listingID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[listingID]; !ok {
		return fmt.Errorf("unwatch listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	if _, watching := s.watchers[listingID][userID]; !watching {
		return nil
	}
	delete(s.watchers[listingID], userID)
	ids := s.watched[userID]
	for i, id := range ids {
		if id == listingID {
			s.watched[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// IsWatching reports whether a user watches a listing
func (s *MemoryStore) IsWatching(listingID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.listings[listingID]; !ok {
		return false, fmt.Errorf("is watching listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	_, watching := s.watchers[listingID][userID]
	return watching, nil
}

// ListWatchedByUser returns the listings a user watches, active or not, in
// the order they were watched
func (s *MemoryStore) ListWatchedByUser(userID string) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]model.Listing, 0, len(s.watched[userID]))
	for _, id := range s.watched[userID] {
		if l, ok := s.listings[id]; ok {
			listings = append(listings, copyListing(l))
		}
	}
	return listings, nil
}

// AddComment appends an immutable comment to a listing
func (s *MemoryStore) AddComment(comment model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[comment.ListingID]; !ok {
		return fmt.Errorf("comment on listing %s: %w", comment.ListingID, auctionerrors.ErrListingNotFound)
	}
	s.comments[comment.ListingID] = append(s.comments[comment.ListingID], comment)
	return nil
}

// ListCommentsByListing returns a listing's comments oldest first
func (s *MemoryStore) ListCommentsByListing(listingID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.listings[listingID]; !ok {
		return nil, fmt.Errorf("list comments for listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	return append([]model.Comment(nil), s.comments[listingID]...), nil
}

// ListBidsByListing returns a listing's full bid history oldest first
func (s *MemoryStore) ListBidsByListing(listingID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.listings[listingID]; !ok {
		return nil, fmt.Errorf("list bids for listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	return append([]model.Bid(nil), s.bids[listingID]...), nil
}

// AddCategory adds a category to the store; an existing name is left alone.
// Used for seeding at startup and in tests.
func (s *MemoryStore) AddCategory(category model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.categoryOrder {
		if s.categories[id].Name == category.Name {
			return nil
		}
	}
	s.categories[category.CategoryID] = category
	s.categoryOrder = append(s.categoryOrder, category.CategoryID)
	return nil
}

func copyListing(l model.Listing) model.Listing {
	if l.CurrentBid != nil {
		bid := *l.CurrentBid
		l.CurrentBid = &bid
	}
	return l
}
