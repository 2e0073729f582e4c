package httputils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/IgorGrieder/link-registry/internal/constants"
)

func TestWriteAPIError_EchoesCorrelationID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/abc12", nil)
	req.Header.Set(CorrelationIDHeader, "corr-1")
	rec := httptest.NewRecorder()

	WriteAPIError(rec, req, constants.ErrLinkExpired)

	if rec.Code != http.StatusGone {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusGone)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != "corr-1" {
		t.Errorf("correlation header = %q, want %q", got, "corr-1")
	}

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != constants.CodeLinkExpired || resp.CorrelationId != "corr-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetCorrelationID_Generated(t *testing.T) {
	id := GetCorrelationID(httptest.NewRequest(http.MethodGet, "/", nil))
	if len(id) != 36 {
		t.Errorf("generated id = %q, want a uuid", id)
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		URL string `json:"url"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"url":"a.com"}`, false},
		{"unknown field", `{"url":"a.com","x":1}`, true},
		{"too large", `{"url":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
