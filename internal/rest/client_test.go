package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T) *Client {
	return NewClient(5*time.Second, zaptest.NewLogger(t))
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"physio"}`)
	}))
	defer srv.Close()

	var out struct{ Name string }
	require.NoError(t, newTestClient(t).GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "physio", out.Name)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such examination", http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(t).GetJSON(context.Background(), srv.URL+"/12", new(any))
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, http.MethodGet, httpErr.Method)
	assert.Equal(t, "no such examination", httpErr.Body)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t).GetBytes(ctx, srv.URL, nil)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestClient_SendJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	raw, err := newTestClient(t).SendJSON(context.Background(), http.MethodPut, srv.URL, map[string]int{"id": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3}`, string(raw))
}

func TestClient_SendJSON_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	raw, err := newTestClient(t).SendJSON(context.Background(), http.MethodPost, srv.URL, struct{}{})
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_GetBytesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/work/ab 12/SE1/IM1", r.URL.Query().Get("path"))
		assert.Equal(t, "1", r.URL.Query().Get("keep"))
		_, _ = w.Write([]byte{0x44, 0x49, 0x43, 0x4d})
	}))
	defer srv.Close()

	data, err := newTestClient(t).GetBytes(context.Background(), srv.URL+"/get_dicom/?keep=1",
		url.Values{"path": {"/work/ab 12/SE1/IM1"}})
	require.NoError(t, err)
	assert.Equal(t, "DICM", string(data))
}

func TestClient_PostMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "physio.csv", header.Filename)
		assert.Equal(t, "hr,rr\n", string(content))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	raw, err := newTestClient(t).PostMultipart(context.Background(), srv.URL, "files", "physio.csv", strings.NewReader("hr,rr\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestClient_Delete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t).Delete(context.Background(), srv.URL))
}
