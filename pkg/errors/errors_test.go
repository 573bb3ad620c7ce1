package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row not found")
	err := Wrap(CodeNotFound, cause, "load bid")

	if err.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
	if As(fmt.Errorf("handler: %w", err)) == nil {
		t.Fatal("expected typed error through wrapping")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeStateConflict, "bid already settled")
	if !IsCode(err, CodeStateConflict) {
		t.Fatal("expected state conflict code")
	}
	if IsCode(err, CodeConflict) {
		t.Fatal("unexpected code match")
	}
	if IsCode(nil, CodeConflict) {
		t.Fatal("nil error should not match")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad amount").WithDetails(map[string]string{"bid_price": "must exceed fee"})
	if err.Details() == nil {
		t.Fatal("expected details")
	}
}
