package services

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/yashrajoria/storefront-bff/models"
)

// --- Fake upstream ---

type upstreamCall struct {
	Method string
	Path   string
	Query  url.Values
	Token  string
	Body   []byte
}

type fakeUpstream struct {
	mu     sync.Mutex
	calls  []upstreamCall
	handle func(c upstreamCall) (any, error)
}

func newFakeUpstream(handle func(c upstreamCall) (any, error)) *fakeUpstream {
	return &fakeUpstream{handle: handle}
}

func (f *fakeUpstream) DoJSON(_ context.Context, method, path string, query url.Values, token string, in, out any) error {
	var body []byte
	if in != nil {
		body, _ = json.Marshal(in)
	}
	c := upstreamCall{Method: method, Path: path, Query: query, Token: token, Body: body}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if f.handle == nil {
		return nil
	}
	resp, err := f.handle(c)
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	var raw []byte
	switch v := resp.(type) {
	case string:
		raw = []byte(v)
	default:
		raw, _ = json.Marshal(v)
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeUpstream) Calls() []upstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstreamCall(nil), f.calls...)
}

func (f *fakeUpstream) CountOf(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// --- Fake SNS ---

type fakeSNS struct {
	mu        sync.Mutex
	published []string
	bodies    [][]byte
	err       error
}

func (f *fakeSNS) Publish(_ context.Context, _ string, eventType string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, eventType)
	f.bodies = append(f.bodies, message)
	return nil
}

// --- Fake presigner ---

type fakePresigner struct {
	keys []string
	err  error
}

func (f *fakePresigner) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, map[string]string, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	f.keys = append(f.keys, key)
	return "https://media.example.com/" + key + "?X-Amz-Signature=abc", map[string]string{"Content-Type": "image/png"}, nil
}

// --- Helpers ---

func int64Ptr(v int64) *int64 { return &v }

func sellerSession(token string) models.Session {
	return models.Authenticated("dev-seller", 20, models.RoleSeller, token)
}

func adminSession() models.Session {
	return models.Authenticated("dev-admin", 1, models.RoleAdmin, "admin-token")
}
