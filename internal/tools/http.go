package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"toolflow/internal/config"
	"toolflow/internal/value"
)

// HTTPTool implements [Handler] by sending the step's parameters as a JSON
// body to an endpoint and returning the decoded JSON response.
type HTTPTool struct {
	name         string
	description  string
	endpoint     string
	method       string
	token        string
	authHeader   string
	responsePath string
	cacheTTL     time.Duration
	cache        *Cache
	httpClient   *http.Client
}

// NewHTTPTool builds an HTTPTool from cfg. A nil client gets a client with a
// 15 second timeout. cache may be nil when cfg.CacheTTL is zero.
func NewHTTPTool(cfg config.ToolConfig, client *http.Client, cache *Cache) (*HTTPTool, error) {
	if cfg.Type != "http" {
		return nil, fmt.Errorf("tool type is %q, not http", cfg.Type)
	}
	if cfg.Name == "" || cfg.Endpoint == "" {
		return nil, fmt.Errorf("http tool requires name and endpoint")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.CacheTTL > 0 && cache == nil {
		cache = NewCache()
	}
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}
	return &HTTPTool{
		name:         cfg.Name,
		description:  cfg.Description,
		endpoint:     cfg.Endpoint,
		method:       method,
		token:        cfg.Token,
		authHeader:   cfg.AuthHeader,
		responsePath: cfg.ResponsePath,
		cacheTTL:     cfg.CacheTTL,
		cache:        cache,
		httpClient:   client,
	}, nil
}

func (t *HTTPTool) Name() string        { return t.name }
func (t *HTTPTool) Description() string { return t.description }

// Execute sends params to the endpoint. GET requests carry no body; their
// scalar params are sent as query parameters instead.
func (t *HTTPTool) Execute(ctx context.Context, params map[string]value.Value) (value.Value, error) {
	body, err := json.Marshal(value.Map(params))
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: encode params: %w", t.name, err)
	}

	cacheKey := t.name + ":" + string(body)
	if t.cacheTTL > 0 {
		if v, ok := t.cache.Get(cacheKey); ok {
			return v, nil
		}
	}

	req, err := t.newRequest(ctx, params, body)
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: %w", t.name, err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: %w", t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bs, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return value.Value{}, fmt.Errorf("%s: http %d: %s", t.name, resp.StatusCode, strings.TrimSpace(string(bs)))
	}

	var out value.Value
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return value.Value{}, fmt.Errorf("%s: decode response: %w", t.name, err)
	}
	if t.responsePath != "" {
		out = extractPath(out, t.responsePath)
	}

	if t.cacheTTL > 0 {
		t.cache.Set(cacheKey, out, t.cacheTTL)
	}
	return out, nil
}

func (t *HTTPTool) newRequest(ctx context.Context, params map[string]value.Value, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if t.method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, t.method, t.endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		for k, v := range params {
			switch v.Kind() {
			case value.KindString:
				s, _ := v.AsString()
				q.Set(k, s)
			case value.KindNumber, value.KindBool:
				q.Set(k, v.String())
			}
		}
		req.URL.RawQuery = q.Encode()
	} else {
		req, err = http.NewRequestWithContext(ctx, t.method, t.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if t.token != "" {
		header := t.authHeader
		if header == "" {
			header = "Authorization"
		}
		req.Header.Set(header, "Bearer "+t.token)
	}
	return req, nil
}

// extractPath follows a simple path like "data.items[0]" into v. A path that
// cannot be followed yields null.
func extractPath(v value.Value, path string) value.Value {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == '[' || r == ']' })
	for _, p := range parts {
		switch v.Kind() {
		case value.KindMap:
			m, _ := v.AsMap()
			next, ok := m[p]
			if !ok {
				return value.Null()
			}
			v = next
		case value.KindList:
			items, _ := v.AsList()
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(items) {
				return value.Null()
			}
			v = items[i]
		default:
			return value.Null()
		}
	}
	return v
}

// NewHandlersFromConfig builds handlers for every configured tool. HTTP tools
// share one cache keyed by tool name, so entries never collide. logger
// receives command tool stderr and may be nil.
func NewHandlersFromConfig(configs []config.ToolConfig, client *http.Client, logger *zap.SugaredLogger) ([]Handler, error) {
	cache := NewCache()
	handlers := make([]Handler, 0, len(configs))
	for _, cfg := range configs {
		switch cfg.Type {
		case "http":
			h, err := NewHTTPTool(cfg, client, cache)
			if err != nil {
				return nil, fmt.Errorf("tool %q: %w", cfg.Name, err)
			}
			handlers = append(handlers, h)
		case "command":
			h, err := NewCommandTool(cfg, logger)
			if err != nil {
				return nil, fmt.Errorf("tool %q: %w", cfg.Name, err)
			}
			handlers = append(handlers, h)
		default:
			return nil, fmt.Errorf("tool %q: unknown tool type %q", cfg.Name, cfg.Type)
		}
	}
	return handlers, nil
}
