package apierror

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestError_JSON(t *testing.T) {
	e := WithDetail(http.StatusInternalServerError, "Internal Processing Engine Failure", "boom").ForSession("SES-1")
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"error":"Internal Processing Engine Failure","details":"boom","session_id":"SES-1"}`
	if string(raw) != want {
		t.Errorf("json = %s, want %s", raw, want)
	}
}

func TestError_OmitsEmpty(t *testing.T) {
	raw, _ := json.Marshal(BadRequest("No file detected in request"))
	if string(raw) != `{"error":"No file detected in request"}` {
		t.Errorf("json = %s", raw)
	}
}

func TestForSession_DoesNotMutate(t *testing.T) {
	base := Unprocessable("empty")
	_ = base.ForSession("SES-2")
	if base.SessionID != "" {
		t.Error("ForSession mutated the receiver")
	}
	if base.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d", base.Status)
	}
}

func TestError_String(t *testing.T) {
	if got := NotFound("report").Error(); got != "[404] report not found" {
		t.Errorf("Error() = %q", got)
	}
}
