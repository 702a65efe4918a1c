package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(config.HTTPClientConfig{
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 2,
		DialTimeout:         time.Second,
		IdleConnTimeout:     time.Second,
	}, 50*time.Millisecond)

	t.Run("request succeeds", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/fast")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("response timeout applies", func(t *testing.T) {
		_, err := client.Get(srv.URL + "/slow")
		assert.Error(t, err)
	})
}
