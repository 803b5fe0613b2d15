package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

type vendorBody struct {
	VendorID string `json:"vendor_id" validate:"required,notblank"`
	Mode     string `json:"mode" validate:"omitempty,oneof=edit view"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vendor_id":"V1","extra":true}`))
	var body vendorBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vendor_id":"  ","mode":"review"}`))
	var body vendorBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["vendor_id"] != "must not be blank" {
		t.Fatalf("unexpected vendor_id message %q", details["vendor_id"])
	}
	if details["mode"] != "must be one of: edit view" {
		t.Fatalf("unexpected mode message %q", details["mode"])
	}
}

func TestParseQueryList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?item_id=I1,%20I2&item_id=&item_id=I3", nil)
	got, err := ParseQueryList(req, "item_id", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(got, "|") != "I1|I2|I3" {
		t.Fatalf("unexpected values %v", got)
	}
	if _, err := ParseQueryList(req, "item_id", 2); err == nil {
		t.Fatal("expected max to be enforced")
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=900", nil)
	if _, err := ParseQueryInt(req, "limit", 50, 1, 500); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	if got := SanitizeString("  PR-0001  ", 0); got != "PR-0001" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	// "é" is two bytes; cutting at 2 would split it.
	if got := SanitizeString("aé", 2); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
}
