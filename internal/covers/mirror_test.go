package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticMirror_Probe(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path == "/images/moby-dick.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	mirror := NewStaticMirror(server.URL+"/images/", 5*time.Second)
	ctx := context.Background()

	t.Run("hit returns the mirror URL", func(t *testing.T) {
		url, err := mirror.Probe(ctx, "moby-dick")
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/images/moby-dick.jpg", url)
	})

	t.Run("404 is a miss, not an error", func(t *testing.T) {
		url, err := mirror.Probe(ctx, "unknown-book")
		require.NoError(t, err)
		assert.Empty(t, url)
	})

	for _, m := range methods {
		assert.Equal(t, http.MethodHead, m)
	}
}

func TestStaticMirror_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	mirror := NewStaticMirror(server.URL, time.Second)

	url, err := mirror.Probe(context.Background(), "moby-dick")
	assert.Error(t, err)
	assert.Empty(t, url)
}

func TestStaticMirror_DefaultBaseURL(t *testing.T) {
	mirror := NewStaticMirror("", time.Second)
	assert.Equal(t, DefaultMirrorBaseURL+"/moby-dick.jpg", mirror.URLFor("moby-dick"))
}
