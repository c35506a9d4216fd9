package registry_test

import (
	"context"
	"testing"

	"github.com/mit-kavli-institute/pdoflow-go/registry"
)

func TestMapRegistryRegisterAndResolve(t *testing.T) {
	r := registry.New()
	called := false
	r.Register("myapp", "do_thing", func(ctx context.Context, args []any, kwargs map[string]any) error {
		called = true
		return nil
	})

	fn, err := r.Resolve("myapp", "do_thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fn(context.Background(), nil, nil); err != nil {
		t.Fatalf("unexpected error invoking resolved callable: %v", err)
	}
	if !called {
		t.Fatal("resolved callable was not the one registered")
	}
}

func TestMapRegistryResolveUnknown(t *testing.T) {
	r := registry.New()
	if _, err := r.Resolve("myapp", "missing"); err == nil {
		t.Fatal("expected error resolving unregistered callable")
	}
}

func TestMapRegistryOverwritesPreviousRegistration(t *testing.T) {
	r := registry.New()
	r.Register("myapp", "do_thing", func(ctx context.Context, args []any, kwargs map[string]any) error {
		return nil
	})
	secondCalled := false
	r.Register("myapp", "do_thing", func(ctx context.Context, args []any, kwargs map[string]any) error {
		secondCalled = true
		return nil
	})

	fn, err := r.Resolve("myapp", "do_thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fn(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if !secondCalled {
		t.Fatal("second registration should have overwritten the first")
	}
}
