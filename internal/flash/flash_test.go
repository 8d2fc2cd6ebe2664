package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shindakun/areagate/internal/models"
)

func newTestStore() *Store {
	return NewStore("0123456789abcdef0123456789abcdef", false, http.SameSiteLaxMode)
}

// requestWith replays the cookies of rec the way a browser would:
// a later Set-Cookie for the same name replaces an earlier one
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	latest := make(map[string]*http.Cookie)
	var order []string
	for _, c := range rec.Result().Cookies() {
		if _, seen := latest[c.Name]; !seen {
			order = append(order, c.Name)
		}
		latest[c.Name] = c
	}

	req := httptest.NewRequest(http.MethodGet, "/logging/in", nil)
	for _, name := range order {
		req.AddCookie(latest[name])
	}
	return req
}

func TestFlashShownExactlyOnce(t *testing.T) {
	s := newTestStore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logging/authenticate", nil)
	require.NoError(t, s.Add(rec, req, models.FlashDanger, "Unknown username"))

	// first render sees the message
	first := httptest.NewRecorder()
	messages, err := s.Pop(first, requestWith(rec))
	require.NoError(t, err)
	assert.Equal(t, []models.FlashMessage{{Category: models.FlashDanger, Text: "Unknown username"}}, messages)

	cleared := first.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)

	// second render, carrying the cleared cookie, sees nothing
	second := httptest.NewRecorder()
	messages, err = s.Pop(second, requestWith(first))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestFlashKeepsOrder(t *testing.T) {
	s := newTestStore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, s.Add(rec, req, models.FlashInfo, "one"))
	require.NoError(t, s.Add(rec, req, models.FlashSuccess, "two"))

	messages, err := s.Pop(httptest.NewRecorder(), requestWith(rec))
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Text)
	assert.Equal(t, "two", messages[1].Text)
}

func TestPopWithoutCookieSetsNothing(t *testing.T) {
	s := newTestStore()

	rec := httptest.NewRecorder()
	messages, err := s.Pop(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, rec.Result().Cookies())
}

func TestPopDropsTamperedCookie(t *testing.T) {
	s := newTestStore()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "forged"})

	rec := httptest.NewRecorder()
	messages, err := s.Pop(rec, req)
	require.NoError(t, err)
	assert.Empty(t, messages)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
}
