package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/windfall/drill_service/internal/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp
}

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]string{"word": "cat"})

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: want=%q got=%q", "application/json", ct)
	}
	resp := decode(t, rec)
	if !resp.Success || resp.Error != nil {
		t.Fatalf("want success envelope, got %+v", resp)
	}
}

func TestFromErrorKeepsAppErrorCode(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("score: %w", apperrors.AIService("transcription failed", fmt.Errorf("timeout")))
	FromError(rec, err)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Success {
		t.Fatalf("success: want false")
	}
	if resp.Error.Code != string(apperrors.ErrAIService) {
		t.Fatalf("code: want=%s got=%s", apperrors.ErrAIService, resp.Error.Code)
	}
	if !strings.Contains(resp.Error.Message, "timeout") {
		t.Fatalf("message should carry the provider text, got %q", resp.Error.Message)
	}
}

func TestFromErrorValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, apperrors.Validation("topic is not supported"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}
