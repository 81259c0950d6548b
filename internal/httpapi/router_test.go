package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/fiscal-organizer/internal/archive"
	"fjacquet/fiscal-organizer/internal/config"
	"fjacquet/fiscal-organizer/internal/container"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeCNPJ = "12345678000190"

const nfeSaida = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe">
  <NFe><infNFe>
    <ide><mod>55</mod></ide>
    <emit><CNPJ>12345678000190</CNPJ></emit>
    <dest><CNPJ>99888777000166</CNPJ></dest>
  </infNFe></NFe>
</nfeProc>`

type upload struct {
	name    string
	content string
}

func newTestRouter(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.History.Database = filepath.Join(t.TempDir(), "history.db")
	cfg.Organizer.WorkspaceDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	c, err := container.NewContainerWithLogger(cfg, logging.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewRouter(c).Handler()
}

func multipartBody(t *testing.T, fields map[string]string, files []upload) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(FieldFiles, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func postOrganize(t *testing.T, h http.Handler, fields map[string]string, files []upload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/v1/organize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(newTestRouter(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestOrganize_ReturnsArchive(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postOrganize(t, h,
		map[string]string{FieldCompany: "Acme", FieldCNPJ: "12.345.678/0001-90"},
		[]upload{
			{"nota.xml", nfeSaida},
			{"sped_contribuicoes.txt", "|0000|"},
			{"vazio.txt", ""},
			{"notas, marco.txt", ""},
		})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=Acme.zip`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, models.StatusPartial, rec.Header().Get(HeaderRunStatus))
	assert.Equal(t, []string{"vazio.txt", "notas, marco.txt"}, rec.Header().Values(HeaderUnreadable))
	assert.Empty(t, rec.Header().Values(HeaderConflicting))
	assert.NotEmpty(t, rec.Header().Get(HeaderRunID))

	names, err := archive.List(rec.Body.Bytes())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"NFE_SAIDA/nota.xml", "SPED/sped_contribuicoes.txt"}, names)
}

func TestOrganize_Errors(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name   string
		fields map[string]string
		want   int
	}{
		{"missing company", map[string]string{FieldCNPJ: acmeCNPJ}, http.StatusBadRequest},
		{"malformed cnpj", map[string]string{FieldCompany: "Acme", FieldCNPJ: "123"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postOrganize(t, h, tt.fields, []upload{{"a.txt", "x"}})
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}

	t.Run("wrong method", func(t *testing.T) {
		assert.Equal(t, http.StatusMethodNotAllowed, get(h, "/v1/organize").Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/organize", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrganize_UploadTooLarge(t *testing.T) {
	h := newTestRouter(t, func(cfg *config.Config) { cfg.Server.MaxUploadMB = 1 })
	rec := postOrganize(t, h,
		map[string]string{FieldCompany: "Acme"},
		[]upload{{"big.txt", strings.Repeat("x", 2<<20)}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRuns(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := postOrganize(t, h, map[string]string{FieldCompany: "Acme"}, []upload{{"planilha.xlsx", "x"}})
	require.Equal(t, http.StatusOK, rec.Code)
	runID := rec.Header().Get(HeaderRunID)

	list := get(h, "/v1/runs")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, "application/json", list.Header().Get("Content-Type"))
	var runs []models.RunRecord
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, models.StatusCompleted, runs[0].Status)

	one := get(h, "/v1/runs/"+runID)
	require.Equal(t, http.StatusOK, one.Code)
	var run models.RunRecord
	require.NoError(t, json.Unmarshal(one.Body.Bytes(), &run))
	require.Len(t, run.Documents, 1)
	assert.Equal(t, models.CategoryPlanilha, run.Documents[0].Category)

	assert.Equal(t, http.StatusNotFound, get(h, "/v1/runs/missing").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/v1/runs?format=csv").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/v1/runs?limit=-1").Code)
	assert.Equal(t, "application/yaml", get(h, "/v1/runs?format=yaml").Header().Get("Content-Type"))
}

func TestRuns_HistoryDisabled(t *testing.T) {
	h := newTestRouter(t, func(cfg *config.Config) { cfg.History.Enabled = false })
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/runs").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/runs/abc").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)
	require.Equal(t, http.StatusOK, postOrganize(t, h, map[string]string{FieldCompany: "Acme"}, []upload{{"a.txt", "x"}}).Code)

	rec := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fiscal_organizer_organizer_runs_total")
	assert.Contains(t, rec.Body.String(), "fiscal_organizer_http_requests_total")
}
