package preview

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreEvent_FiltersEditorChurn(t *testing.T) {
	require.True(t, shouldIgnoreEvent("/course/.hidden.md"))
	require.True(t, shouldIgnoreEvent("/course/#intro.md#"))
	require.True(t, shouldIgnoreEvent("/course/intro.md.swp"))
	require.True(t, shouldIgnoreEvent("/course/intro.md~"))
	require.True(t, shouldIgnoreEvent("/course/.DS_Store"))
	require.False(t, shouldIgnoreEvent("/course/intro.md"))
}

func TestDebouncer_BurstCoalescesToOneRequest(t *testing.T) {
	req, trigger := debouncer()
	for i := 0; i < 10; i++ {
		trigger()
	}

	select {
	case <-req:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	// The burst produced exactly one request.
	select {
	case <-req:
		t.Fatal("debouncer fired more than once for one burst")
	case <-time.After(2 * quietWindow):
	}
}

func TestHandler_ServesBuildOutput(t *testing.T) {
	buildDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "index.html"), []byte("<h1>hi</h1>"), 0o644))

	s := &Server{BuildDir: buildDir}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_StatusReportsLastBuildError(t *testing.T) {
	s := &Server{BuildDir: t.TempDir()}
	s.status.set(nil)
	s.status.set(errors.New("pdf compiler missing"))

	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Equal(t, false, doc["ok"])
	require.Equal(t, true, doc["has_good_build"])
	require.Contains(t, doc["error"], "pdf compiler")
}
