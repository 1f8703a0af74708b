package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolflow/internal/config"
	"toolflow/internal/value"
)

func TestNewHTTPTool_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ToolConfig
		wantErr string
	}{
		{
			name:    "wrong type",
			cfg:     config.ToolConfig{Name: "x", Type: "grpc", Endpoint: "http://x"},
			wantErr: "not http",
		},
		{
			name:    "missing endpoint",
			cfg:     config.ToolConfig{Name: "x", Type: "http"},
			wantErr: "requires name and endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPTool(tt.cfg, nil, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPTool_Execute_PostJSON(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":{"items":[{"title":"first"},{"title":"second"}]}}`))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(config.ToolConfig{
		Name:         "get_news",
		Type:         "http",
		Endpoint:     srv.URL,
		Token:        "abc",
		ResponsePath: "data.items[1].title",
	}, srv.Client(), nil)
	require.NoError(t, err)
	assert.Equal(t, "get_news", tool.Name())

	got, err := tool.Execute(context.Background(), map[string]value.Value{
		"topics": value.List(value.String("tech")),
	})

	require.NoError(t, err)
	assert.Equal(t, "second", mustString(t, got))
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]any{"topics": []any{"tech"}}, gotBody)
}

func TestHTTPTool_Execute_GetQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Oslo", r.URL.Query().Get("city"))
		assert.Equal(t, "3", r.URL.Query().Get("days"))
		assert.False(t, r.URL.Query().Has("nested"), "non-scalar params are not sent on GET")
		_, _ = w.Write([]byte(`"sunny"`))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(config.ToolConfig{
		Name:     "get_weather",
		Type:     "http",
		Endpoint: srv.URL,
		Method:   "get",
	}, srv.Client(), nil)
	require.NoError(t, err)

	got, err := tool.Execute(context.Background(), map[string]value.Value{
		"city":   value.String("Oslo"),
		"days":   value.Int(3),
		"nested": value.List(value.Int(1)),
	})

	require.NoError(t, err)
	assert.Equal(t, "sunny", mustString(t, got))
}

func TestHTTPTool_Execute_CustomAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("X-Api-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(config.ToolConfig{
		Name: "t", Type: "http", Endpoint: srv.URL, Token: "k", AuthHeader: "X-Api-Key",
	}, srv.Client(), nil)
	require.NoError(t, err)

	got, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestHTTPTool_Execute_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(config.ToolConfig{Name: "deploy", Type: "http", Endpoint: srv.URL}, srv.Client(), nil)
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy: http 502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestHTTPTool_Execute_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(config.ToolConfig{Name: "t", Type: "http", Endpoint: srv.URL}, srv.Client(), nil)
	require.NoError(t, err)

	_, err = tool.Execute(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestHTTPTool_Execute_Cache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]int32{"hit": n})
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(config.ToolConfig{
		Name: "t", Type: "http", Endpoint: srv.URL, CacheTTL: time.Minute,
	}, srv.Client(), nil)
	require.NoError(t, err)

	params := map[string]value.Value{"q": value.String("a")}
	first, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	second, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = tool.Execute(context.Background(), map[string]value.Value{"q": value.String("b")})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "different params miss the cache")
}

func TestExtractPath(t *testing.T) {
	doc, err := value.FromAny(map[string]any{
		"data": map[string]any{
			"items": []any{"a", "b"},
			"count": 2,
		},
	})
	require.NoError(t, err)

	tests := []struct {
		path string
		want value.Value
	}{
		{"data.count", value.Int(2)},
		{"data.items[0]", value.String("a")},
		{"data.items.1", value.String("b")},
		{"data.items[5]", value.Null()},
		{"data.missing", value.Null()},
		{"data.count.deeper", value.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.True(t, tt.want.Equal(extractPath(doc, tt.path)), "path %s", tt.path)
		})
	}
}

func TestNewHandlersFromConfig(t *testing.T) {
	handlers, err := NewHandlersFromConfig([]config.ToolConfig{
		{Name: "a", Type: "http", Endpoint: "http://localhost/a"},
		{Name: "b", Type: "http", Endpoint: "http://localhost/b", CacheTTL: time.Second},
		{Name: "c", Type: "command", Command: []string{"cat"}},
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, handlers, 3)
	assert.Equal(t, "a", handlers[0].Name())
	assert.Equal(t, "b", handlers[1].Name())
	assert.IsType(t, &CommandTool{}, handlers[2])

	_, err = NewHandlersFromConfig([]config.ToolConfig{{Name: "c", Type: "shell"}}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool type "shell"`)
}
