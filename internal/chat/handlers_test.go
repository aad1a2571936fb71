package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jiikooan/ajatus-server/internal/ledger"
)

func setupChatRouter(t *testing.T, prov Provider, grant int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := ledger.New(ledger.NewMemoryStore(grant))
	g := NewGateway(l, prov, 1, false)
	r := gin.New()
	NewHandler(g, "default-model").RegisterRoutes(r)
	return r
}

func postChat(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestChat_Buffered(t *testing.T) {
	prov := &stubProvider{completion: &Completion{
		Content: "Moi!",
		Model:   "m",
		Usage:   Usage{TotalTokens: 10},
	}}
	r := setupChatRouter(t, prov, 1000)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"wallet_address":"W1","stream":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Moi!", resp.Content)
	assert.Equal(t, "m", resp.Model)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestChat_StreamingIsDefault(t *testing.T) {
	prov := &stubProvider{fragments: []Fragment{{Content: "Hel"}, {Content: "lo"}}}
	r := setupChatRouter(t, prov, 1000)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"wallet_address":"W1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `data: {"content":"Hel"}`)
	assert.Contains(t, body, `data: {"content":"lo"}`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"), "stream must end with [DONE]: %q", body)
}

func TestChat_StreamError_InBand(t *testing.T) {
	prov := &stubProvider{fragments: []Fragment{
		{Content: "par"},
		{Err: assert.AnError},
	}}
	r := setupChatRouter(t, prov, 1000)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"wallet_address":"W1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `data: {"content":"par"}`)
	assert.Contains(t, body, `data: {"error":`)
	assert.NotContains(t, body, "[DONE]")
}

func TestChat_MissingMessages(t *testing.T) {
	r := setupChatRouter(t, &stubProvider{}, 1000)

	for _, body := range []string{`{}`, `{"messages":[]}`, `{"messages":[{"role":"user"}]}`} {
		w := postChat(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestChat_ParameterBounds(t *testing.T) {
	r := setupChatRouter(t, &stubProvider{completion: &Completion{}}, 1000)

	for _, body := range []string{
		`{"messages":[{"role":"user","content":"x"}],"max_tokens":9000}`,
		`{"messages":[{"role":"user","content":"x"}],"max_tokens":-1}`,
		`{"messages":[{"role":"user","content":"x"}],"max_tokens":0}`,
		`{"messages":[{"role":"user","content":"x"}],"temperature":2.5}`,
		`{"messages":[{"role":"user","content":"x"}],"temperature":-0.1}`,
	} {
		w := postChat(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestChat_InsufficientBalance(t *testing.T) {
	prov := &stubProvider{completion: &Completion{Content: "x"}}
	r := setupChatRouter(t, prov, 0)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"wallet_address":"broke","stream":false}`)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_balance", resp["error"])
	assert.Equal(t, int64(0), prov.calls.Load(), "provider must not run for a broke wallet")
}

func TestChat_ProviderError(t *testing.T) {
	prov := &stubProvider{completeErr: errors.New("upstream timed out")}
	r := setupChatRouter(t, prov, 1000)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"wallet_address":"W1","stream":false}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "provider_error", resp["error"])
	assert.Contains(t, resp["message"], "upstream timed out")
}

func TestChat_ProviderUnavailable(t *testing.T) {
	r := setupChatRouter(t, nil, 1000)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"stream":false}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "provider_unavailable", resp["error"])
}

func TestChat_DefaultModelApplied(t *testing.T) {
	var seen string
	prov := &recordingProvider{onComplete: func(req Request) {
		seen = req.Model
	}}
	r := setupChatRouter(t, prov, 1000)

	w := postChat(r, `{"messages":[{"role":"user","content":"Hei"}],"stream":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default-model", seen)
}

// recordingProvider captures the request handed to the provider.
type recordingProvider struct {
	onComplete func(Request)
}

func (p *recordingProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	p.onComplete(req)
	return &Completion{Content: "ok"}, nil
}

func (p *recordingProvider) Stream(ctx context.Context, req Request) (<-chan Fragment, error) {
	out := make(chan Fragment)
	close(out)
	return out, nil
}
