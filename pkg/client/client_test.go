package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/explorer/pkg/protocol"
	"github.com/fruitsalade/explorer/pkg/retry"
	"github.com/fruitsalade/explorer/pkg/session"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(Config{
		BaseURL: ts.URL,
		Session: &session.Session{Token: "tok-123"},
		RetryConfig: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestFolderContents_SendsAuthAndQuery(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, protocol.PathFolderContents, r.URL.Path)
		assert.Equal(t, "/Users/Docs", r.URL.Query().Get("path"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, protocol.ContentsResponse{
			Folders: []protocol.FolderRecord{{Name: "Drafts", Path: "/Users/Docs/Drafts"}},
			Files:   []protocol.FileRecord{{ID: "f1", Name: "a.txt", FolderPath: "/Users/Docs"}},
		})
	}))

	resp, err := c.FolderContents(context.Background(), "/Users/Docs")
	require.NoError(t, err)
	require.Len(t, resp.Folders, 1)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "f1", resp.Files[0].ID)
}

func TestPost_ServerMessagePropagated(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Message: "folder already exists"})
	}))

	err := c.RenameFolder(context.Background(), protocol.RenameFolderRequest{CurrentPath: "/a", NewName: "b"})
	require.Error(t, err)

	ae, ok := AsAPIError(err)
	require.True(t, ok, "expected APIError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "folder already exists", ae.Message)
	assert.Equal(t, protocol.PathRenameFolder, ae.Endpoint)
}

func TestPost_FallbackMessage(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	err := c.ChangeIcon(context.Background(), protocol.ChangeIconRequest{Path: "/a", Icon: "red"})
	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "request failed with status 403", ae.Message)
}

func TestPost_NotRetried(t *testing.T) {
	var attempts atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.AddComment(context.Background(), protocol.AddCommentRequest{Path: "/a", Comment: "hi"})
	require.Error(t, err)
	assert.EqualValues(t, 1, attempts.Load())
	assert.False(t, retry.IsRetryable(err), "retry marker must not leak to callers")
	_, ok := AsAPIError(err)
	assert.True(t, ok)
}

func TestGet_RetriedOnServerError(t *testing.T) {
	var attempts atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []protocol.FolderRecord{{Name: "x", Path: "/x"}})
	}))

	folders, err := c.OnlyFolders(context.Background(), "/")
	require.NoError(t, err)
	assert.Len(t, folders, 1)
	assert.EqualValues(t, 3, attempts.Load())
	assert.True(t, c.IsOnline())
}

func TestGet_NotFoundNotRetried(t *testing.T) {
	var attempts atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{Message: "path not found"})
	}))

	_, err := c.FolderContents(context.Background(), "/missing")
	assert.True(t, IsNotFound(err))
	assert.EqualValues(t, 1, attempts.Load())
	assert.True(t, c.IsOnline(), "client should remain online after a 404")
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(Config{BaseURL: url, RetryConfig: retry.Config{MaxAttempts: 2, InitialWait: time.Millisecond}})
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, c.IsOnline())
}

func TestValidationBeforeSend(t *testing.T) {
	var called atomic.Bool
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))

	_, err := c.CreateFile(context.Background(), protocol.CreateFileRequest{FirstName: "A", LastName: "B", Email: "bad", FolderPath: "/"})
	var ve *protocol.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.False(t, called.Load(), "invalid requests must not reach the gateway")
}

func TestCreateFolder_DecodesRecord(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.CreateFolderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, protocol.FolderRecord{Name: req.Name, Path: req.ParentPath + "/" + req.Name, Icon: req.Icon})
	}))

	rec, err := c.CreateFolder(context.Background(), protocol.CreateFolderRequest{Name: "New", Icon: "blue", ParentPath: "/Users"})
	require.NoError(t, err)
	assert.Equal(t, "/Users/New", rec.Path)
	assert.Equal(t, "blue", rec.Icon)
}

func TestObserveAndSessionSwap(t *testing.T) {
	var seen []int
	var auth atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(Config{
		BaseURL: ts.URL,
		Observe: func(endpoint string, status int, _ time.Duration) {
			assert.Equal(t, protocol.PathHealth, endpoint)
			seen = append(seen, status)
		},
	})

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "", auth.Load())

	c.SetSession(&session.Session{Token: "fresh"})
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "Bearer fresh", auth.Load())
	assert.Equal(t, []int{200, 200}, seen)
}
