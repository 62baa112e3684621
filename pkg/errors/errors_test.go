package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestResolveErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewNetworkError("request failed", "https://bluearchive.wiki", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatal("errors.As should recover the typed error")
	}
	if netErr.Code != CodeNetwork {
		t.Errorf("Code = %q, want %q", netErr.Code, CodeNetwork)
	}
	if netErr.URL != "https://bluearchive.wiki" {
		t.Errorf("URL = %q", netErr.URL)
	}
}

func TestErrorMessagesCarryContext(t *testing.T) {
	err := NewCacheError("encode failed", "write", "voice-link-cache.json", nil)
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}

	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) {
		t.Fatal("errors.As should recover CacheError")
	}
	if cacheErr.Operation != "write" {
		t.Errorf("Operation = %q", cacheErr.Operation)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("duplicated korean value", "baseNameMap", "아루")

	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatal("errors.As should recover ValidationError")
	}
	if v.Field != "baseNameMap" || v.Value != "아루" {
		t.Errorf("Field/Value = %q/%q", v.Field, v.Value)
	}
	if v.Code != CodeValidation {
		t.Errorf("Code = %q", v.Code)
	}
}
