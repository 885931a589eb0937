package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/m365/pkg/config"
	"github.com/rexliu/m365/pkg/core"
)

type fakeCaller struct {
	mu     sync.Mutex
	method string
	params map[string]any
	reply  any
}

func (f *fakeCaller) Call(ctx context.Context, method string, params map[string]any) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.method, f.params = method, params
	return f.reply
}

type fakeHistory struct {
	limit int
	err   error
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]core.CallRecord, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []core.CallRecord{{ID: "01", Method: core.ToolVerifyLogin, Outcome: core.OutcomeOK}}, nil
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func unlimited() config.BridgeConfig {
	return config.BridgeConfig{Burst: 1}
}

func TestHealth(t *testing.T) {
	s := New(&fakeCaller{}, nil, config.BridgeConfig{Token: "x"}, nil)
	rr := do(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAuth(t *testing.T) {
	caller := &fakeCaller{reply: map[string]any{"ok": true}}
	cfg := unlimited()
	cfg.Token = "secret"
	s := New(caller, nil, cfg, nil)

	rr := do(t, s, http.MethodPost, "/v1/tools/verify-login", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = do(t, s, http.MethodPost, "/v1/tools/verify-login", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, caller.method)

	rr = do(t, s, http.MethodPost, "/v1/tools/verify-login", "", "secret")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, core.ToolVerifyLogin, caller.method)
}

func TestCallPassthrough(t *testing.T) {
	caller := &fakeCaller{reply: map[string]any{"error": "Request timed out"}}
	s := New(caller, nil, unlimited(), nil)

	rr := do(t, s, http.MethodPost, "/v1/tools/list-mail-messages", `{"top":5,"folderId":"inbox"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Request timed out"}`, rr.Body.String())
	assert.Equal(t, core.ToolListMailMessages, caller.method)
	assert.Equal(t, map[string]any{"top": json.Number("5"), "folderId": "inbox"}, caller.params)

	rr = do(t, s, http.MethodPost, "/v1/tools/list-accounts", "  ", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, caller.params)
}

func TestCallRejectsBadJSON(t *testing.T) {
	caller := &fakeCaller{}
	s := New(caller, nil, unlimited(), nil)
	for _, body := range []string{`{`, `[1]`, `null`, `{} {}`} {
		rr := do(t, s, http.MethodPost, "/v1/tools/send-mail", body, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Empty(t, caller.method)
}

func TestRateLimit(t *testing.T) {
	s := New(&fakeCaller{reply: map[string]any{}}, nil, config.BridgeConfig{RatePerSecond: 0.001, Burst: 2}, nil)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/tools/a", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/tools/a", "", "").Code)
	rr := do(t, s, http.MethodPost, "/v1/tools/a", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// history and health are not limited
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/history", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "", "").Code)
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{}
	s := New(&fakeCaller{}, hist, unlimited(), nil)

	rr := do(t, s, http.MethodGet, "/v1/history?limit=5", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, hist.limit)
	var body struct {
		Calls []core.CallRecord `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Calls, 1)
	assert.Equal(t, core.ToolVerifyLogin, body.Calls[0].Method)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/history?limit=x", "", "").Code)

	hist.err = errors.New("locked")
	assert.Equal(t, http.StatusInternalServerError, do(t, s, http.MethodGet, "/v1/history", "", "").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(&fakeCaller{}, nil, unlimited(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
