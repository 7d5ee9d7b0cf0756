package httpserver

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/frame"
	"github.com/framescope/framescope/internal/pipeline"
	"github.com/framescope/framescope/internal/recording"
	"github.com/framescope/framescope/internal/transform"
)

// stubSource satisfies source.Source without producing any frames.
type stubSource struct{}

func (stubSource) Open() error                    { return nil }
func (stubSource) Start() error                   { return nil }
func (stubSource) ReadFrame() (image.Image, bool) { return nil, false }
func (stubSource) Seek(position int) bool         { return false }
func (stubSource) Info() *frame.SourceInfo {
	return &frame.SourceInfo{Name: "stub", Kind: frame.SourceImageSequence, Width: 8, Height: 8}
}
func (stubSource) SupportsSeek() bool        { return false }
func (stubSource) TotalFrames() (int, bool)  { return 0, false }
func (stubSource) Position() int             { return 0 }
func (stubSource) Close() error              { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	rec := recording.NewService(recording.Config{BaseDir: t.TempDir()})
	p := pipeline.New(&pipeline.Config{
		Source:    stubSource{},
		Transform: transform.NewIdentity(),
		Recorder:  rec,
	})
	settings := &conf.Settings{}
	settings.Webserver.Listen = "127.0.0.1:0"
	return New(settings, p, nil)
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody)
	rr := httptest.NewRecorder()
	s.Echo.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["running"])
	assert.Equal(t, "No Processing", resp["transform"])
}

func TestLatestFrameEmptyBuffers(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/frames/latest", http.NoBody)
	rr := httptest.NewRecorder()
	s.Echo.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFrameByNumberRejectsGarbage(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/frames/abc", http.NoBody)
	rr := httptest.NewRecorder()
	s.Echo.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecordingStartStop(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recording/start?name=clip", http.NoBody)
	rr := httptest.NewRecorder()
	s.Echo.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var started map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	assert.Contains(t, started["session_dir"], "clip")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/recording/stop", http.NoBody)
	rr = httptest.NewRecorder()
	s.Echo.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var stopped map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stopped))
	assert.Equal(t, started["session_dir"], stopped["session_dir"])
	assert.EqualValues(t, 0, stopped["frames_written"])
}
