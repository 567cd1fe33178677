package agent

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_PostsJobVerbatim(t *testing.T) {
	var gotBody []byte
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	job := []byte(`{"type":"print_request","content":"<p>x</p>","settings":{"copies":2}}`)
	err := NewPrinter(srv.URL).Print(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, job, gotBody)
	assert.Equal(t, "application/json", gotType)
}

func TestPrinter_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no printer selected", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewPrinter(srv.URL).Print(context.Background(), []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "no printer selected")
}

func TestPrinter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, NewPrinter(url).Print(context.Background(), []byte(`{}`)))
}
