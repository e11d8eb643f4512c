package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStoreWithDB(db), mock
}

func TestPostgresStore_PlaceBid_Success(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT true FROM listings").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
	mock.ExpectQuery("SELECT b.amount FROM listing_current_bid").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow(10.0))
	mock.ExpectExec("INSERT INTO bids").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO listing_current_bid").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bid := model.Bid{BidID: "b1", ListingID: "l1", UserID: "u1", Amount: 15, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.PlaceBid("l1", bid))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PlaceBid_TooLow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT true FROM listings").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
	mock.ExpectQuery("SELECT b.amount FROM listing_current_bid").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow(10.0))
	mock.ExpectRollback()

	bid := model.Bid{BidID: "b1", ListingID: "l1", UserID: "u1", Amount: 5, CreatedAt: time.Now().UTC()}
	err := store.PlaceBid("l1", bid)
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PlaceBid_ListingNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT true FROM listings").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.PlaceBid("missing", model.Bid{BidID: "b1", Amount: 5})
	require.ErrorIs(t, err, auctionerrors.ErrListingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PlaceBid_NoCurrentBid(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT true FROM listings").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
	mock.ExpectQuery("SELECT b.amount FROM listing_current_bid").
		WithArgs("l1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO bids").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO listing_current_bid").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bid := model.Bid{BidID: "b1", ListingID: "l1", UserID: "u1", Amount: 0.01, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.PlaceBid("l1", bid))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUser_DuplicateUsername(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateUser(model.User{UserID: "u1", Username: "alice"})
	require.ErrorIs(t, err, auctionerrors.ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCategoryByName_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT category_id, name FROM categories").
		WithArgs("Garden").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetCategoryByName("Garden")
	require.ErrorIs(t, err, auctionerrors.ErrCategoryNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseListing_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE listings SET is_active").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.CloseListing("missing")
	require.ErrorIs(t, err, auctionerrors.ErrListingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
