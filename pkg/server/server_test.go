package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/config"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/pipeline"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/store"
)

func newTestServer(t *testing.T, routeErr error) *Server {
	t.Helper()
	runner := pipeline.NewRunner(config.Default(), nil, nil, nil)
	runner.RouterName = "stub"
	runner.Router = route.RouterFunc(func(ctx context.Context, req route.Request) (*route.Mesh, error) {
		if routeErr != nil {
			return nil, routeErr
		}
		mesh := &route.Mesh{}
		for _, n := range req.Nets {
			mesh.Wires = append(mesh.Wires, route.Wire{Net: n.Name, Layer: 1, Shape: n.Terminals[0].Shape})
		}
		return mesh, nil
	})
	return New(runner, store.NewMemoryStore(), nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body not JSON: %q", rec.Body.String())
	}
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Build.Version == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestCellLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/cells", `{"params": {"name": "cmp_a", "input_pair_w": 6000}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created CreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Name != "cmp_a" {
		t.Fatalf("created = %+v", created.Record)
	}
	if created.Document != nil {
		t.Error("create response should not embed the document")
	}
	if created.Stats.Instances != 14 || created.Stats.Wires != 10 {
		t.Errorf("stats = %+v", created.Stats)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/cells/"+created.ID {
		t.Errorf("Location = %q", loc)
	}
	path := "/v1/cells/" + created.ID

	rec = do(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Document == nil || got.Document.Params.InputPairW != 6000 || len(got.Document.Instances) != 14 {
		t.Errorf("document = %+v", got.Document)
	}

	rec = do(t, s, http.MethodGet, "/v1/cells", "")
	var list struct {
		Cells []store.Record `json:"cells"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Cells) != 1 || list.Cells[0].ID != created.ID {
		t.Errorf("list = %+v", list.Cells)
	}

	rec = do(t, s, http.MethodGet, path+"/svg", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Errorf("svg status=%d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Errorf("svg body = %.40q", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, path+"/netlist?format=dot", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), `graph "cmp_a"`) {
		t.Errorf("dot status=%d body=%.40q", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodDelete, path, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "NOT_FOUND" {
		t.Errorf("get after delete status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateDefaults(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/v1/cells", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var created CreateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Name != "strongarm" {
		t.Errorf("Name = %q", created.Name)
	}

	rec = do(t, s, http.MethodPost, "/v1/cells", `{"skip_route": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("skip_route status = %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Stats.Wires != 0 {
		t.Errorf("unrouted cell has %d wires", created.Stats.Wires)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		routeErr error
		method   string
		path     string
		body     string
		status   int
		code     string
	}{
		{"bad json", nil, http.MethodPost, "/v1/cells", `{"params":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", nil, http.MethodPost, "/v1/cells", `{"colour": 1}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad params", nil, http.MethodPost, "/v1/cells", `{"params": {"fingers": -1}}`, http.StatusBadRequest, "CONFIGURATION"},
		{"routing failure", errors.New("stuck"), http.MethodPost, "/v1/cells", `{}`, http.StatusUnprocessableEntity, "ROUTING"},
		{"bad id", nil, http.MethodGet, "/v1/cells/not-a-uuid", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad limit", nil, http.MethodGet, "/v1/cells?limit=x", "", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.routeErr)
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.New(apperrors.ErrCodeLattice, "x"), http.StatusUnprocessableEntity},
		{apperrors.New(apperrors.ErrCodeFrozen, "x"), http.StatusUnprocessableEntity},
		{apperrors.New(apperrors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{apperrors.New(apperrors.ErrCodeInvalidFormat, "x"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", apperrors.New(apperrors.ErrCodeNotFound, "x")), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestStoredDocumentDecodes(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/v1/cells", "")
	var created CreateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = do(t, s, http.MethodGet, "/v1/cells/"+created.ID, "")
	var raw struct {
		Document json.RawMessage `json:"document"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	doc, err := cellio.Unmarshal(raw.Document)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Ports) != 7 {
		t.Errorf("ports = %d, want 7", len(doc.Ports))
	}
}
