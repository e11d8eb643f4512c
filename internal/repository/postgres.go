package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// schema is applied at startup; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id       TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(user_id),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS categories (
	category_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS listings (
	listing_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	poster_id   TEXT NOT NULL REFERENCES users(user_id),
	category_id TEXT REFERENCES categories(category_id),
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	seq         BIGSERIAL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bids (
	bid_id     TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL REFERENCES listings(listing_id),
	user_id    TEXT NOT NULL REFERENCES users(user_id),
	amount     NUMERIC(10,2) NOT NULL CHECK (amount >= 0),
	seq        BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS listing_current_bid (
	listing_id TEXT PRIMARY KEY REFERENCES listings(listing_id),
	bid_id     TEXT NOT NULL REFERENCES bids(bid_id)
);

CREATE TABLE IF NOT EXISTS watchers (
	listing_id TEXT NOT NULL REFERENCES listings(listing_id),
	user_id    TEXT NOT NULL REFERENCES users(user_id),
	seq        BIGSERIAL,
	PRIMARY KEY (listing_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
	comment_id TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL REFERENCES listings(listing_id),
	user_id    TEXT NOT NULL REFERENCES users(user_id),
	message    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore is the sqlx-backed implementation of AuctionStore. Bid
// placement locks the listing row so the compare-and-replace is serialized
// per listing.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and bootstraps the schema
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

type listingRow struct {
	ListingID   string         `db:"listing_id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	ImageURL    string         `db:"image_url"`
	PosterID    string         `db:"poster_id"`
	CategoryID  sql.NullString `db:"category_id"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   sql.NullTime   `db:"created_at"`

	BidID     sql.NullString  `db:"bid_id"`
	BidUserID sql.NullString  `db:"bid_user_id"`
	Amount    sql.NullFloat64 `db:"amount"`
	BidAt     sql.NullTime    `db:"bid_at"`
}

func (r listingRow) toModel() model.Listing {
	l := model.Listing{
		ListingID:   r.ListingID,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		PosterID:    r.PosterID,
		CategoryID:  r.CategoryID.String,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.Time,
	}
	if r.BidID.Valid {
		l.CurrentBid = &model.Bid{
			BidID:     r.BidID.String,
			ListingID: r.ListingID,
			UserID:    r.BidUserID.String,
			Amount:    r.Amount.Float64,
			CreatedAt: r.BidAt.Time,
		}
	}
	return l
}

const listingSelect = `
SELECT l.listing_id, l.name, l.description, l.image_url, l.poster_id,
       l.category_id, l.is_active, l.created_at,
       b.bid_id AS bid_id, b.user_id AS bid_user_id, b.amount AS amount,
       b.created_at AS bid_at
  FROM listings l
  LEFT JOIN listing_current_bid cb ON cb.listing_id = l.listing_id
  LEFT JOIN bids b ON b.bid_id = cb.bid_id`

// CreateUser stores a new user, rejecting duplicate usernames
func (s *PostgresStore) CreateUser(user model.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (user_id, username, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`,
		user.UserID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", user.Username, auctionerrors.ErrUsernameTaken)
	}
	return err
}

// GetUserByUsername looks a user up by their unique username
func (s *PostgresStore) GetUserByUsername(username string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowx(
		`SELECT user_id, username, email, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", username, auctionerrors.ErrUserNotFound)
	}
	return u, err
}

// GetUserByID looks a user up by id
func (s *PostgresStore) GetUserByID(userID string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowx(
		`SELECT user_id, username, email, password_hash, created_at FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user id %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return u, err
}

// CreateSession stores a new session
func (s *PostgresStore) CreateSession(session model.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, user_id, expires_at, created_at) VALUES ($1,$2,$3,$4)`,
		session.SessionID, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	return err
}

// GetSession returns a session by id
func (s *PostgresStore) GetSession(sessionID string) (model.Session, error) {
	var sess model.Session
	err := s.db.QueryRowx(
		`SELECT session_id, user_id, expires_at, created_at FROM sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&sess.SessionID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("get session %s: %w", sessionID, auctionerrors.ErrSessionNotFound)
	}
	return sess, err
}

// DeleteSession removes a session; deleting a missing session is a no-op
func (s *PostgresStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = $1`, sessionID)
	return err
}

// ListCategories returns all categories in insertion order
func (s *PostgresStore) ListCategories() ([]model.Category, error) {
	rows, err := s.db.Queryx(`SELECT category_id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.CategoryID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetCategoryByName resolves a category by its exact name
func (s *PostgresStore) GetCategoryByName(name string) (model.Category, error) {
	var c model.Category
	err := s.db.QueryRowx(`SELECT category_id, name FROM categories WHERE name = $1`, name).
		Scan(&c.CategoryID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, fmt.Errorf("get category %s: %w", name, auctionerrors.ErrCategoryNotFound)
	}
	return c, err
}

// AddCategory inserts a category if its name is not already present
func (s *PostgresStore) AddCategory(category model.Category) error {
	_, err := s.db.Exec(
		`INSERT INTO categories (category_id, name) VALUES ($1,$2) ON CONFLICT (name) DO NOTHING`,
		category.CategoryID, category.Name,
	)
	return err
}

// CreateListing stores a listing and its starting bid in one transaction
func (s *PostgresStore) CreateListing(listing model.Listing) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var categoryID any
	if listing.CategoryID != "" {
		categoryID = listing.CategoryID
	}
	if _, err := tx.Exec(
		`INSERT INTO listings (listing_id, name, description, image_url, poster_id, category_id, is_active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		listing.ListingID, listing.Name, listing.Description, listing.ImageURL,
		listing.PosterID, categoryID, listing.IsActive, listing.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}

	if listing.CurrentBid != nil {
		bid := listing.CurrentBid
		if _, err := tx.Exec(
			`INSERT INTO bids (bid_id, listing_id, user_id, amount, created_at) VALUES ($1,$2,$3,$4,$5)`,
			bid.BidID, listing.ListingID, bid.UserID, bid.Amount, bid.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert starting bid: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO listing_current_bid (listing_id, bid_id) VALUES ($1,$2)`,
			listing.ListingID, bid.BidID,
		); err != nil {
			return fmt.Errorf("set current bid: %w", err)
		}
	}
	return tx.Commit()
}

// GetListing returns a listing by id
func (s *PostgresStore) GetListing(listingID string) (model.Listing, error) {
	var row listingRow
	err := s.db.Get(&row, listingSelect+` WHERE l.listing_id = $1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, fmt.Errorf("get listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	if err != nil {
		return model.Listing{}, err
	}
	return row.toModel(), nil
}

// ListActiveListings returns all active listings in insertion order
func (s *PostgresStore) ListActiveListings() ([]model.Listing, error) {
	var rows []listingRow
	if err := s.db.Select(&rows, listingSelect+` WHERE l.is_active ORDER BY l.seq`); err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

// ListActiveListingsByCategory returns active listings in one category
func (s *PostgresStore) ListActiveListingsByCategory(categoryID string) ([]model.Listing, error) {
	var rows []listingRow
	if err := s.db.Select(&rows, listingSelect+` WHERE l.is_active AND l.category_id = $1 ORDER BY l.seq`, categoryID); err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

// PlaceBid records a bid after comparing it against the current bid inside a
// transaction. The SELECT ... FOR UPDATE on the listing row serializes
// concurrent bids per listing.
func (s *PostgresStore) PlaceBid(listingID string, bid model.Bid) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowx(
		`SELECT true FROM listings WHERE listing_id = $1 FOR UPDATE`, listingID,
	).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("place bid on listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
		}
		return err
	}

	var current sql.NullFloat64
	if err := tx.QueryRowx(
		`SELECT b.amount FROM listing_current_bid cb JOIN bids b ON b.bid_id = cb.bid_id WHERE cb.listing_id = $1`,
		listingID,
	).Scan(&current); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if current.Valid && bid.Amount <= current.Float64 {
		return fmt.Errorf("place bid on listing %s: %w", listingID, auctionerrors.ErrBidTooLow)
	}
	if !current.Valid && bid.Amount <= 0 {
		return fmt.Errorf("place bid on listing %s: %w", listingID, auctionerrors.ErrBidTooLow)
	}

	if _, err := tx.Exec(
		`INSERT INTO bids (bid_id, listing_id, user_id, amount, created_at) VALUES ($1,$2,$3,$4,$5)`,
		bid.BidID, listingID, bid.UserID, bid.Amount, bid.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO listing_current_bid (listing_id, bid_id) VALUES ($1,$2)
		 ON CONFLICT (listing_id) DO UPDATE SET bid_id = EXCLUDED.bid_id`,
		listingID, bid.BidID,
	); err != nil {
		return fmt.Errorf("replace current bid: %w", err)
	}
	return tx.Commit()
}

// CloseListing marks a listing inactive. The transition is terminal.
func (s *PostgresStore) CloseListing(listingID string) error {
	res, err := s.db.Exec(`UPDATE listings SET is_active = FALSE WHERE listing_id = $1`, listingID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("close listing %s: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	return nil
}

// AddWatcher adds a user to a listing's watcher set; already watching is a
// no-op
func (s *PostgresStore) AddWatcher(listingID, userID string) error {
	_, err := s.db.Exec(
		`INSERT INTO watchers (listing_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		listingID, userID,
	)
	return err
}

// RemoveWatcher removes a user from a listing's watcher set; not watching is
// a no-op
func (s *PostgresStore) RemoveWatcher(listingID, userID string) error {
	_, err := s.db.Exec(
		`DELETE FROM watchers WHERE listing_id = $1 AND user_id = $2`,
		listingID, userID,
	)
	return err
}

// IsWatching reports whether a user watches a listing
func (s *PostgresStore) IsWatching(listingID, userID string) (bool, error) {
	var watching bool
	err := s.db.QueryRowx(
		`SELECT EXISTS (SELECT 1 FROM watchers WHERE listing_id = $1 AND user_id = $2)`,
		listingID, userID,
	).Scan(&watching)
	return watching, err
}

// ListWatchedByUser returns the listings a user watches, active or not, in
// the order they were watched
func (s *PostgresStore) ListWatchedByUser(userID string) ([]model.Listing, error) {
	var rows []listingRow
	err := s.db.Select(&rows, listingSelect+`
  JOIN watchers w ON w.listing_id = l.listing_id
 WHERE w.user_id = $1
 ORDER BY w.seq`, userID)
	if err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

// AddComment appends an immutable comment to a listing
func (s *PostgresStore) AddComment(comment model.Comment) error {
	_, err := s.db.Exec(
		`INSERT INTO comments (comment_id, listing_id, user_id, message, created_at) VALUES ($1,$2,$3,$4,$5)`,
		comment.CommentID, comment.ListingID, comment.UserID, comment.Message, comment.CreatedAt,
	)
	return err
}

// ListCommentsByListing returns a listing's comments oldest first
func (s *PostgresStore) ListCommentsByListing(listingID string) ([]model.Comment, error) {
	rows, err := s.db.Queryx(
		`SELECT comment_id, listing_id, user_id, message, created_at FROM comments WHERE listing_id = $1 ORDER BY created_at ASC`,
		listingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.CommentID, &c.ListingID, &c.UserID, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListBidsByListing returns a listing's full bid history oldest first
func (s *PostgresStore) ListBidsByListing(listingID string) ([]model.Bid, error) {
	rows, err := s.db.Queryx(
		`SELECT bid_id, listing_id, user_id, amount, created_at FROM bids WHERE listing_id = $1 ORDER BY seq`,
		listingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]model.Bid, 0)
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.ListingID, &b.UserID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func toListings(rows []listingRow) []model.Listing {
	listings := make([]model.Listing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.toModel())
	}
	return listings
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// go-sqlmock and friends don't produce *pq.Error
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}
