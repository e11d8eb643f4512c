package integrationtests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	account "auction-house/internal/accountService"
	auction "auction-house/internal/auctionService"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/utils"
)

// SetupTestRouter initializes the router with an in-memory store seeded
// with the given categories.
func SetupTestRouter(t *testing.T, categories ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	for _, name := range categories {
		require.NoError(t, store.AddCategory(model.Category{CategoryID: utils.GenerateID(), Name: name}))
	}

	auctions := auction.NewAuctionService(store)
	accounts := account.NewAccountService(store, time.Hour)
	return server.SetupRouter(auctions, accounts)
}

// ExecuteForm posts an urlencoded form with the given session cookie and
// returns the response recorder.
func ExecuteForm(t *testing.T, router *gin.Engine, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ParseEnvelope unmarshals the standard JSON response envelope.
func ParseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// RegisterUser signs up a user through the API and returns their session
// cookie.
func RegisterUser(t *testing.T, router *gin.Engine, username string) *http.Cookie {
	t.Helper()

	form := url.Values{
		"username":     {username},
		"email":        {username + "@example.com"},
		"password":     {"secret"},
		"confirmation": {"secret"},
	}
	w := ExecuteForm(t, router, http.MethodPost, "/register", form, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "session_id" {
			return cookie
		}
	}
	t.Fatalf("no session cookie after registering %s", username)
	return nil
}

// CreateListing posts a listing through the API and returns its id, looked
// up from the feed.
func CreateListing(t *testing.T, router *gin.Engine, cookie *http.Cookie, name, category string, price string) string {
	t.Helper()

	form := url.Values{
		"name":        {name},
		"description": {"description of " + name},
		"price":       {price},
		"category":    {category},
	}
	w := ExecuteForm(t, router, http.MethodPost, "/create", form, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)

	feed := ExecuteForm(t, router, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, feed.Code)

	data := ParseEnvelope(t, feed)["data"].(map[string]any)
	for _, l := range data["listings"].([]any) {
		listing := l.(map[string]any)
		if listing["name"] == name {
			return listing["listing_id"].(string)
		}
	}
	t.Fatalf("listing %q not found in feed", name)
	return ""
}
