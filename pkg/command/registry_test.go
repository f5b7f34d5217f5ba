package command

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func echoHandler(tag string) HandlerFunc {
	return func(_ context.Context, _ map[string]any, _ *string) (map[string]any, error) {
		return map[string]any{"tag": tag}, nil
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("Ping", echoHandler("v1"))

	h, ok := r.Resolve("Ping")
	if !ok {
		t.Fatal("Resolve(Ping) not found")
	}
	data, err := h.Invoke(context.Background(), map[string]any{}, nil)
	if err != nil || data["tag"] != "v1" {
		t.Fatalf("Invoke() = %v, %v", data, err)
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Resolve("Nope"); ok {
		t.Fatal("Resolve(Nope) should not be found")
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("Ping", echoHandler("v1"))
	r.RegisterFunc("Ping", echoHandler("v2"))

	h, _ := r.Resolve("Ping")
	data, _ := h.Invoke(context.Background(), map[string]any{}, nil)
	if data["tag"] != "v2" {
		t.Fatalf("replacement did not take effect: %v", data)
	}
	if r.Len() != 1 {
		t.Fatalf("Len()=%d, want 1", r.Len())
	}
}

func TestRegistry_CaseSensitiveNames(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("Ping", echoHandler("upper"))

	if _, ok := r.Resolve("ping"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("Ping", echoHandler("v1"))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if _, ok := r.Resolve("Ping"); !ok {
					t.Error("Resolve(Ping) failed during concurrent access")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestHandlerFunc_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	h := HandlerFunc(func(_ context.Context, _ map[string]any, _ *string) (map[string]any, error) {
		return nil, want
	})
	if _, err := h.Invoke(context.Background(), map[string]any{}, nil); !errors.Is(err, want) {
		t.Fatalf("err=%v, want %v", err, want)
	}
}
