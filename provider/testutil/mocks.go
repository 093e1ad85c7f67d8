package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"genadapter/provider"
)

// MockClient implements provider.Client and provider.Pinger for testing
type MockClient struct {
	// Configurable responses
	InvokeFunc func(ctx context.Context, req provider.Request) (string, error)
	PingFunc   func(ctx context.Context) error

	Identity provider.Identity
	Modality provider.Modality

	mu       sync.Mutex
	requests []provider.Request
}

// NewMockClient creates a mock client that echoes the prompt
func NewMockClient(id provider.Identity, m provider.Modality) *MockClient {
	c := &MockClient{Identity: id, Modality: m}
	c.InvokeFunc = c.defaultInvoke
	c.PingFunc = func(ctx context.Context) error { return nil }
	return c
}

func (c *MockClient) defaultInvoke(ctx context.Context, req provider.Request) (string, error) {
	return fmt.Sprintf("%s: %s", c.Modality, req.Prompt), nil
}

func (c *MockClient) Invoke(ctx context.Context, req provider.Request) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return c.InvokeFunc(ctx, req)
}

func (c *MockClient) Ping(ctx context.Context) error {
	return c.PingFunc(ctx)
}

// Requests returns a copy of every request passed to Invoke
func (c *MockClient) Requests() []provider.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// MockFactory implements provider.ClientFactory. Every successful NewClient
// call returns a distinct *MockClient, so tests can compare handles by
// pointer.
type MockFactory struct {
	SupportsFunc func(source string) bool
	// NewClientFunc overrides construction entirely when set.
	NewClientFunc func(id provider.Identity, m provider.Modality) (provider.Client, error)
	// ConfigureClient is applied to each default-built client.
	ConfigureClient func(c *MockClient)
	// Delay slows each construction so concurrent callers overlap.
	Delay time.Duration

	constructions sync.Map // provider.Modality -> *atomic.Int64
}

// NewMockFactory creates a factory that supports every source
func NewMockFactory() *MockFactory {
	return &MockFactory{
		SupportsFunc: func(string) bool { return true },
	}
}

func (f *MockFactory) Supports(source string) bool {
	if f.SupportsFunc == nil {
		return true
	}
	return f.SupportsFunc(source)
}

func (f *MockFactory) NewClient(id provider.Identity, m provider.Modality) (provider.Client, error) {
	f.counter(m).Add(1)
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.NewClientFunc != nil {
		return f.NewClientFunc(id, m)
	}
	c := NewMockClient(id, m)
	if f.ConfigureClient != nil {
		f.ConfigureClient(c)
	}
	return c, nil
}

// Constructions returns how many times NewClient ran for modality m,
// including failed attempts.
func (f *MockFactory) Constructions(m provider.Modality) int64 {
	return f.counter(m).Load()
}

func (f *MockFactory) counter(m provider.Modality) *atomic.Int64 {
	v, _ := f.constructions.LoadOrStore(m, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// MockResolver implements provider.CredentialResolver
type MockResolver struct {
	EnsureFunc func(source, namespace string) error

	calls atomic.Int64

	mu         sync.Mutex
	namespaces []string
}

func (r *MockResolver) Ensure(source, namespace string) error {
	r.calls.Add(1)
	r.mu.Lock()
	r.namespaces = append(r.namespaces, namespace)
	r.mu.Unlock()
	if r.EnsureFunc == nil {
		return nil
	}
	return r.EnsureFunc(source, namespace)
}

// Calls returns how many times Ensure ran
func (r *MockResolver) Calls() int64 {
	return r.calls.Load()
}

// Namespaces returns the namespace passed to each Ensure call, in order
func (r *MockResolver) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.namespaces))
	copy(out, r.namespaces)
	return out
}

// MockRecorder implements provider.Recorder and keeps events in memory
type MockRecorder struct {
	Err error

	mu     sync.Mutex
	events []provider.Event
}

func (r *MockRecorder) Record(ctx context.Context, ev provider.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return r.Err
}

func (r *MockRecorder) Events() []provider.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]provider.Event, len(r.events))
	copy(out, r.events)
	return out
}
