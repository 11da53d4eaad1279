package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFanOut_PreservesOrderAndIsolatesFailure(t *testing.T) {
	keys := []string{"a", "b", "c"}
	errB := errors.New("b failed")

	results := fanOut(context.Background(), keys, time.Second, func(ctx context.Context, key string) (string, error) {
		if key == "b" {
			return "", errB
		}
		return "value:" + key, nil
	})

	if len(results) != 3 {
		t.Fatalf("fanOut() len = %d, want 3", len(results))
	}
	for i, key := range keys {
		if results[i].Key != key {
			t.Errorf("results[%d].Key = %q, want %q", i, results[i].Key, key)
		}
	}
	if results[0].Err != nil || results[0].Value != "value:a" {
		t.Errorf("results[0] = %+v, want success value:a", results[0])
	}
	if results[1].Err != errB {
		t.Errorf("results[1].Err = %v, want %v", results[1].Err, errB)
	}
	if results[2].Err != nil || results[2].Value != "value:c" {
		t.Errorf("results[2] = %+v, want success value:c", results[2])
	}
}

func TestFanOut_PerCallTimeoutDoesNotAbortSiblings(t *testing.T) {
	keys := []string{"slow", "fast"}

	results := fanOut(context.Background(), keys, 20*time.Millisecond, func(ctx context.Context, key string) (string, error) {
		if key == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})

	if !results[0].TimedOut {
		t.Errorf("results[0].TimedOut = false, want true for the slow call")
	}
	if results[1].Err != nil || results[1].Value != "ok" {
		t.Errorf("results[1] = %+v, want the fast call to succeed", results[1])
	}
}

func TestFanOut_EmptyKeys(t *testing.T) {
	results := fanOut[string](context.Background(), nil, time.Second, func(ctx context.Context, key string) (string, error) {
		t.Fatal("fn should never be called with no keys")
		return "", nil
	})
	if len(results) != 0 {
		t.Errorf("fanOut() len = %d, want 0", len(results))
	}
}
