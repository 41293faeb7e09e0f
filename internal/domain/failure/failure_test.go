package failure

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindForbidden},
		{http.StatusNotFound, KindNotFound},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindServerError},
		{http.StatusTeapot, KindUnknown},
		{http.StatusConflict, KindUnknown},
	}

	for _, tt := range tests {
		if got := KindForStatus(tt.status); got != tt.want {
			t.Errorf("KindForStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestFromResponseParsesMessage(t *testing.T) {
	f := FromResponse(404, []byte(`{"message":"customer not found"}`))
	if f.StatusCode != 404 {
		t.Errorf("expected status 404, got %d", f.StatusCode)
	}
	if f.Kind != KindNotFound {
		t.Errorf("expected kind not_found, got %s", f.Kind)
	}
	if f.Message != "customer not found" {
		t.Errorf("unexpected message: %q", f.Message)
	}
}

func TestFromResponseFieldErrors(t *testing.T) {
	body := `{"message":"validation failed","errors":{"name":["required"],"price":["must be positive","must be numeric"]}}`
	f := FromResponse(422, []byte(body))
	if f.Kind != KindValidation {
		t.Fatalf("expected kind validation, got %s", f.Kind)
	}
	if len(f.Fields) != 2 {
		t.Fatalf("expected 2 field entries, got %d", len(f.Fields))
	}
	if got := f.Fields["price"]; len(got) != 2 || got[0] != "must be positive" {
		t.Errorf("unexpected price errors: %v", got)
	}
}

func TestFromResponseUnparseableBody(t *testing.T) {
	f := FromResponse(500, []byte("<html>Internal Server Error</html>"))
	if f.Kind != KindServerError {
		t.Errorf("expected kind server_error, got %s", f.Kind)
	}
	if f.Message != FallbackMessage {
		t.Errorf("expected fallback message, got %q", f.Message)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	original := FromResponse(403, []byte(`{"message":"nope"}`))

	once := Classify(original)
	twice := Classify(once)

	if once != original || twice != original {
		t.Error("Classify should return an already-classified failure unchanged")
	}
}

func TestClassifyWrappedFailure(t *testing.T) {
	inner := FromResponse(401, nil)
	wrapped := fmt.Errorf("request to /sales/orders: %w", inner)

	if got := Classify(wrapped); got != inner {
		t.Error("Classify should unwrap to the embedded ApiFailure")
	}
}

func TestClassifyGenericError(t *testing.T) {
	f := Classify(errors.New("connection refused"))
	if f.StatusCode != 0 {
		t.Errorf("generic error should have no status code, got %d", f.StatusCode)
	}
	if f.Message != "connection refused" {
		t.Errorf("message should be preserved, got %q", f.Message)
	}
	if f.Kind != KindUnknown {
		t.Errorf("expected kind unknown, got %s", f.Kind)
	}
}

func TestClassifyNil(t *testing.T) {
	f := Classify(nil)
	if f.Message != FallbackMessage {
		t.Errorf("expected fallback message, got %q", f.Message)
	}
	if f.StatusCode != 0 {
		t.Errorf("expected no status code, got %d", f.StatusCode)
	}
}

func TestIsForbidden(t *testing.T) {
	if !IsForbidden(FromResponse(403, nil)) {
		t.Error("403 failure should be forbidden")
	}
	if IsForbidden(FromResponse(401, nil)) {
		t.Error("401 failure should not be forbidden")
	}
	if IsForbidden(errors.New("boom")) {
		t.Error("generic error should not be forbidden")
	}
	if IsForbidden(nil) {
		t.Error("nil should not be forbidden")
	}
}

func TestMessageFor(t *testing.T) {
	f := FromResponse(404, []byte(`{"message":"warehouse not found"}`))
	if got := MessageFor(f, "fallback"); got != "warehouse not found" {
		t.Errorf("unexpected message: %q", got)
	}
	if got := MessageFor(nil, "fallback"); got != "fallback" {
		t.Errorf("nil error should yield fallback, got %q", got)
	}
}

func TestMessageForResourceForbiddenTemplate(t *testing.T) {
	// A 403 with no server message still renders the templated text when
	// the caller names the resource.
	f := FromResponse(403, nil)
	want := "You don't have permission to view Orders. Please contact your administrator to request access."
	if got := MessageForResource(f, "Orders", "fallback"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// The template wins even when the server did send a message.
	f2 := FromResponse(403, []byte(`{"message":"RBAC policy 41 denied subject"}`))
	if got := MessageForResource(f2, "Orders", "fallback"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMessageForResourceNonForbidden(t *testing.T) {
	f := FromResponse(500, []byte(`{"message":"db down"}`))
	if got := MessageForResource(f, "Orders", "fallback"); got != "db down" {
		t.Errorf("non-403 should use the failure message, got %q", got)
	}
}

func TestErrorsIsUnauthorized(t *testing.T) {
	f := FromResponse(401, nil)
	if !errors.Is(f, ErrUnauthorized) {
		t.Error("401 failure should match ErrUnauthorized")
	}
	if errors.Is(FromResponse(403, nil), ErrUnauthorized) {
		t.Error("403 failure should not match ErrUnauthorized")
	}
}

func TestErrorString(t *testing.T) {
	f := FromResponse(403, []byte(`{"message":"no grant"}`))
	want := "api failure [403 forbidden]: no grant"
	if f.Error() != want {
		t.Errorf("got %q, want %q", f.Error(), want)
	}

	nf := Network(errors.New("dial tcp: timeout"))
	if nf.Error() != "api failure [network]: dial tcp: timeout" {
		t.Errorf("unexpected network error string: %q", nf.Error())
	}
}
