package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFeed_DecimalPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"price":"4000.25"}}`))
	}))
	defer srv.Close()

	f := NewHTTPFeed(srv.URL, "k", "data.price", 8, "")
	ans, err := f.LatestAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "400025000000", ans.Price.String())
	assert.Equal(t, uint8(8), ans.Decimals)
}

func TestHTTPFeed_RawPriceWithDecimals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"4000000000000000000000","decimals":18}`))
	}))
	defer srv.Close()

	f := NewHTTPFeed(srv.URL, "", "answer", 0, "")
	f.DecimalsPath = "decimals"
	ans, err := f.LatestAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4000000000000000000000", ans.Price.String())
	assert.Equal(t, uint8(18), ans.Decimals)
}

func TestHTTPFeed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusBadGateway, `{}`},
		{"invalid json", http.StatusOK, `not json`},
		{"missing path", http.StatusOK, `{"other":1}`},
		{"not a number", http.StatusOK, `{"price":"abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPFeed(srv.URL, "", "", 8, "").LatestAnswer(context.Background())
			assert.Error(t, err)
		})
	}
}
