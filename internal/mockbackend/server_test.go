package mockbackend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEchoReply(t *testing.T) {
	payload := `{"repo_url":"r","messages":[{"role":"user","content":"first"},{"role":"assistant","content":"ok"},{"role":"user","content":"second  question"}]}`
	assert.Equal(t, []string{"second ", "question"}, EchoReply([]byte(payload)))
	assert.Equal(t, []string{"Error: invalid request"}, EchoReply([]byte("not json")))
	assert.Empty(t, EchoReply([]byte(`{"messages":[]}`)))
}

func TestStructureRequiresPath(t *testing.T) {
	s := New(Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/local_repo/structure", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"No path provided"}`, rec.Body.String())
}

func TestStreamRecordsRequest(t *testing.T) {
	s := New(Config{Reply: Frames("a", "b")})

	rec := httptest.NewRecorder()
	body := `{"repo_url":"r","messages":[]}`
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/completions/stream", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ab", rec.Body.String())
	assert.Equal(t, [][]byte{[]byte(body)}, s.Requests())
}

func TestStreamRejectsInvalidJSON(t *testing.T) {
	s := New(Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/completions/stream", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.Requests())
}
