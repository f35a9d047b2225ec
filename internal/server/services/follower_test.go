package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/stretchr/testify/assert"
)

func redirectChain(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "c?x=1", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("landing"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/nolocation", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFollow_ReachesFinalPage(t *testing.T) {
	srv := redirectChain(t)
	f := NewRedirectFollower(5, time.Second, logging.Nop{})

	assert.Equal(t, srv.URL+"/c?x=1", f.Follow(context.Background(), srv.URL+"/a"))
}

func TestFollow_StopsAtHopLimit(t *testing.T) {
	srv := redirectChain(t)
	f := NewRedirectFollower(1, time.Second, logging.Nop{})

	assert.Equal(t, srv.URL+"/b", f.Follow(context.Background(), srv.URL+"/a"))
}

func TestFollow_LoopIsBounded(t *testing.T) {
	srv := redirectChain(t)
	f := NewRedirectFollower(3, time.Second, logging.Nop{})

	assert.Equal(t, srv.URL+"/loop", f.Follow(context.Background(), srv.URL+"/loop"))
}

func TestFollow_MissingLocationKeepsURL(t *testing.T) {
	srv := redirectChain(t)
	f := NewRedirectFollower(3, time.Second, logging.Nop{})

	assert.Equal(t, srv.URL+"/nolocation", f.Follow(context.Background(), srv.URL+"/nolocation"))
}

func TestFollow_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone"
	srv.Close()

	f := NewRedirectFollower(3, 200*time.Millisecond, logging.Nop{})
	assert.Equal(t, url, f.Follow(context.Background(), url))
}
