package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caredash/caredash/pkg/pagination"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	h := NewHandler(NewService(repo))
	e := echo.New()
	return h, repo, e
}

func assertHTTPError(t *testing.T, err error, wantCode int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != wantCode {
		t.Errorf("expected %d, got %d", wantCode, httpErr.Code)
	}
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"John Doe","gender":"Male","age":54,"ever_married":"Yes","work_type":"Private","residence_type":"Urban","avg_glucose_level":95.2,"bmi":27.4,"smoking_status":"never smoked"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id in response")
	}
	if p.Name != "John Doe" {
		t.Errorf("expected John Doe, got %s", p.Name)
	}
}

func TestHandler_Create_ValidationError(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"Jane","gender":"Robot","age":30}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assertHTTPError(t, h.Create(c), http.StatusBadRequest)
}

func TestHandler_Get(t *testing.T) {
	h, _, e := newTestHandler()

	p := validPatient()
	if err := h.svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	assertHTTPError(t, h.Get(c), http.StatusBadRequest)
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	assertHTTPError(t, h.Get(c), http.StatusNotFound)
}

func TestHandler_Update(t *testing.T) {
	h, _, e := newTestHandler()

	p := validPatient()
	if err := h.svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"bmi":31.8,"smoking_status":"smokes"}`
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var updated Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if updated.BMI == nil || *updated.BMI != 31.8 {
		t.Errorf("expected bmi 31.8, got %v", updated.BMI)
	}
	if updated.Name != "John Doe" {
		t.Errorf("expected name unchanged, got %s", updated.Name)
	}
}

func TestHandler_Update_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"age":40}`
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	assertHTTPError(t, h.Update(c), http.StatusNotFound)
}

func TestHandler_Delete(t *testing.T) {
	h, _, e := newTestHandler()

	p := validPatient()
	if err := h.svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	// Second delete reports not found.
	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	assertHTTPError(t, h.Delete(c), http.StatusNotFound)
}

func TestHandler_List(t *testing.T) {
	h, _, e := newTestHandler()

	for i := 0; i < 3; i++ {
		if err := h.svc.Create(context.Background(), validPatient()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?page=1&page_size=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if resp.PageSize != 2 {
		t.Errorf("expected page_size 2, got %d", resp.PageSize)
	}
	if resp.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", resp.TotalPages)
	}
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("expected data array, got %T", resp.Data)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestHandler_List_EmptyPageKeepsTotal(t *testing.T) {
	h, _, e := newTestHandler()

	if err := h.svc.Create(context.Background(), validPatient()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?page=50", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("expected data array, got %T", resp.Data)
	}
	if len(items) != 0 {
		t.Errorf("expected empty page, got %d items", len(items))
	}
}

func TestHandler_StorageUnavailable(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.err = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assertHTTPError(t, h.List(c), http.StatusServiceUnavailable)
}
