package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTransport_TagsAndLogsRequests(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := globalLogger
	globalLogger = zap.New(core)
	defer func() { globalLogger = prev }()

	var gotID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewTransport(nil)}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/UserFolders/GetFolderDetail", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, gotID)
	assert.Empty(t, req.Header.Get(RequestIDHeader), "caller's request must not be modified")

	completed := logs.FilterMessage("gateway request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	assert.Equal(t, gotID, fields["request_id"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
	assert.Equal(t, "/UserFolders/GetFolderDetail", fields["path"])
}

func TestTransport_ReusesContextRequestID(t *testing.T) {
	var gotID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
	}))
	defer ts.Close()

	ctx := WithRequestID(context.Background(), "req-1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := (&http.Client{Transport: NewTransport(nil)}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-1", gotID)
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestSync_Stderr(t *testing.T) {
	require.NoError(t, Init(Config{Level: "info", Format: "json", OutputPath: "stderr"}))
	assert.NoError(t, Sync())
}
