package db

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHealthResponse_OmitsEmptyError(t *testing.T) {
	resp := healthResponse{
		Status: "healthy",
		Pool:   PoolStats{TotalConns: 5, IdleConns: 3, AcquiredConns: 2, MaxConns: 20},
	}

	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), `"error"`) {
		t.Errorf("healthy response should not carry an error field: %s", out)
	}
	if !strings.Contains(string(out), `"total_conns":5`) {
		t.Errorf("expected pool snapshot in response: %s", out)
	}
}

func TestHealthResponse_CarriesPingError(t *testing.T) {
	resp := healthResponse{
		Status: "unhealthy",
		Error:  "connection refused",
	}

	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", decoded["status"])
	}
	if decoded["error"] != "connection refused" {
		t.Errorf("error = %v, want connection refused", decoded["error"])
	}
}
