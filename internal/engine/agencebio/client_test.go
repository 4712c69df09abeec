package agencebio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bioconnect/internal/model"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want url.Values
	}{
		{
			name: "minimal",
			req:  Request{Limit: 20},
			want: url.Values{"nb": {"20"}, "debut": {"0"}},
		},
		{
			name: "everything",
			req: Request{
				Query:   " miel ",
				Filters: model.NewFilterSet(model.FilterRestaurants, model.FilterDirectSale),
				Origin:  &model.Coordinates{Lat: 48.8566, Lng: 2.3522},
				Limit:   20,
				Offset:  40,
			},
			want: url.Values{
				"lat":                {"48.8566"},
				"lng":                {"2.3522"},
				"nb":                 {"20"},
				"debut":              {"40"},
				"q":                  {"miel"},
				"filtrerVenteDetail": {"1"},
				"filtrerRestaurants": {"1"},
			},
		},
		{
			name: "blank query omitted",
			req:  Request{Query: "   ", Limit: 10, Offset: 10},
			want: url.Values{"nb": {"10"}, "debut": {"10"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.req))
		})
	}
}

func TestSearchDecodesPage(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":1,"raisonSociale":"A"},{"id":2,"raisonSociale":"B"}],"nbTotal":45}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/operateurs/"})
	page, err := c.Search(context.Background(), Request{Query: "pain", Limit: 20})
	require.NoError(t, err)

	assert.Equal(t, 45, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Items[1].ID)
	assert.Equal(t, "pain", got.Get("q"))
	assert.Equal(t, "0", got.Get("debut"))
}

func TestSearchMissingFieldsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	page, err := NewClient(Options{BaseURL: srv.URL}).Search(context.Background(), Request{Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestSearchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
	}{
		{"server error", http.StatusInternalServerError, `oops`, 500},
		{"not found", http.StatusNotFound, ``, 404},
		{"malformed payload", http.StatusOK, `{"items": [`, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Options{BaseURL: srv.URL}).Search(context.Background(), Request{Limit: 20})
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.code, reqErr.StatusCode)
			assert.NotEmpty(t, reqErr.Error())
		})
	}
}

func TestSearchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient(Options{BaseURL: base}).Search(context.Background(), Request{Limit: 20})
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.StatusCode)
}

func TestURLKeepsExistingQuery(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://example.test/api?token=x"})
	assert.Equal(t, "https://example.test/api?token=x&debut=0&nb=5", c.URL(Request{Limit: 5}))
}
