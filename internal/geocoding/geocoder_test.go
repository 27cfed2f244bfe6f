package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNominatim(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "nowhere" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"lat":"52.3731","lon":"4.8922"}]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocodeCachesResults(t *testing.T) {
	var calls int32
	srv := newNominatim(t, &calls)
	dir := t.TempDir()

	g := NewGeocoder(logrus.New(), Options{BaseURL: srv.URL, CacheSize: 10, CacheTTL: time.Hour, CacheDir: dir})

	p, err := g.Geocode(context.Background(), "Dam 1, Amsterdam")
	require.NoError(t, err)
	assert.InDelta(t, 4.8922, p.Lon(), 1e-9)
	assert.InDelta(t, 52.3731, p.Lat(), 1e-9)

	// Same address modulo case and spacing hits the cache
	_, err = g.Geocode(context.Background(), "  dam 1,   AMSTERDAM ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = os.Stat(filepath.Join(dir, cacheFileName))
	assert.NoError(t, err)

	// A fresh geocoder picks the persisted entry up
	reloaded := NewGeocoder(logrus.New(), Options{BaseURL: srv.URL, CacheSize: 10, CacheTTL: time.Hour, CacheDir: dir})
	require.NoError(t, reloaded.EnsureInitialized())
	require.NoError(t, reloaded.EnsureInitialized())
	p, err = reloaded.Geocode(context.Background(), "Dam 1, Amsterdam")
	require.NoError(t, err)
	assert.InDelta(t, 52.3731, p.Lat(), 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeNoResults(t *testing.T) {
	var calls int32
	srv := newNominatim(t, &calls)

	g := NewGeocoder(logrus.New(), Options{BaseURL: srv.URL})
	_, err := g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = g.Geocode(context.Background(), "   ")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeCacheIsBounded(t *testing.T) {
	var calls int32
	srv := newNominatim(t, &calls)

	g := NewGeocoder(logrus.New(), Options{BaseURL: srv.URL, CacheSize: 2, CacheTTL: time.Hour})
	ctx := context.Background()
	for _, addr := range []string{"a", "b", "c"} {
		_, err := g.Geocode(ctx, addr)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, g.cache.Len())

	// "a" was evicted
	_, err := g.Geocode(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestGeocodeRespectsMinInterval(t *testing.T) {
	var calls int32
	srv := newNominatim(t, &calls)

	g := NewGeocoder(logrus.New(), Options{BaseURL: srv.URL, MinInterval: 100 * time.Millisecond})
	start := time.Now()
	for _, addr := range []string{"x", "y", "z"} {
		_, err := g.Geocode(context.Background(), addr)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Geocode(ctx, "w")
	assert.ErrorIs(t, err, context.Canceled)
}
