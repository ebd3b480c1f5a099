package req

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/heterodox-labs/funding-service/pkg/logger"
)

type testBody struct {
	Name   string `json:"name" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

func newTestRequest(body string) (*httptest.ResponseRecorder, *http.Request) {
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return httptest.NewRecorder(), r
}

func TestHandleBody_Valid(t *testing.T) {
	log := logger.NewWithOutput(logger.ERROR, io.Discard)
	w, r := newTestRequest(`{"name": "vacuum chamber", "amount": 100}`)

	body, err := HandleBody[testBody](w, r, log)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if body.Name != "vacuum chamber" || body.Amount != 100 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandleBody_MalformedJSON(t *testing.T) {
	log := logger.NewWithOutput(logger.ERROR, io.Discard)
	w, r := newTestRequest(`{"name":`)

	if _, err := HandleBody[testBody](w, r, log); err == nil {
		t.Fatal("expected decode error")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleBody_ValidationFailure(t *testing.T) {
	log := logger.NewWithOutput(logger.ERROR, io.Discard)
	w, r := newTestRequest(`{}`)

	if _, err := HandleBody[testBody](w, r, log); err == nil {
		t.Fatal("expected validation error")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
