package organizer

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"

	"fjacquet/fiscal-organizer/internal/archive"
	"fjacquet/fiscal-organizer/internal/classifier"
	"fjacquet/fiscal-organizer/internal/fiscalerror"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeCNPJ = "12345678000190"

type memoryRecorder struct {
	runs []models.RunRecord
	err  error
}

func (m *memoryRecorder) Record(_ context.Context, run models.RunRecord) error {
	m.runs = append(m.runs, run)
	return m.err
}

type staticDirectory map[string]string

func (d staticDirectory) Lookup(name string) (string, bool) {
	v, ok := d[name]
	return v, ok
}

func newOrganizer(t *testing.T, opts Options) *Organizer {
	t.Helper()
	if opts.WorkspaceDir == "" {
		opts.WorkspaceDir = t.TempDir()
	}
	return New(classifier.New(classifier.Options{}, nil), logging.NewDiscardLogger(), opts)
}

func doc(name, content string) models.Document {
	return models.NewDocument(name, []byte(content))
}

func zipDoc(t *testing.T, name string, entries ...archive.Entry) models.Document {
	t.Helper()
	data, err := archive.ZipEntries(entries)
	require.NoError(t, err)
	return models.NewDocument(name, data)
}

func listArchive(t *testing.T, data []byte) []string {
	t.Helper()
	names, err := archive.List(data)
	require.NoError(t, err)
	return names
}

func contentOf(t *testing.T, data []byte, name string) string {
	t.Helper()
	docs, err := archive.Expand(models.NewDocument("out.zip", data))
	require.NoError(t, err)
	for _, d := range docs {
		if d.Name == name {
			return string(d.Bytes())
		}
	}
	t.Fatalf("%s not found in archive", name)
	return ""
}

func nfe(emit, dest string) string {
	return `<nfeProc><NFe><infNFe><ide><mod>55</mod></ide><emit><CNPJ>` + emit +
		`</CNPJ></emit><dest><CNPJ>` + dest + `</CNPJ></dest></infNFe></NFe></nfeProc>`
}

func TestOrganize_ArchiveWithEmptyText(t *testing.T) {
	o := newOrganizer(t, Options{})
	upload := zipDoc(t, "lote.zip",
		archive.Entry{Path: "cte_saida_001.xml", Content: []byte("<CTe><infCte/></CTe>")},
		archive.Entry{Path: "notas.txt", Content: nil},
	)

	result, err := o.Organize(context.Background(), []models.Document{upload}, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, []string{"CTE_SAIDA/cte_saida_001.xml"}, listArchive(t, result.Archive))
	assert.Equal(t, []string{"notas.txt"}, result.Unreadable)
	assert.Equal(t, "Acme.zip", result.ArchiveName)
	assert.Equal(t, models.StatusPartial, result.Record.Status)
	require.Len(t, result.Record.Documents, 2)
	assert.Equal(t, "lote.zip", result.Record.Documents[0].Source)
}

func TestOrganize_EmptyCompanyName(t *testing.T) {
	rec := &memoryRecorder{}
	o := newOrganizer(t, Options{Recorder: rec})

	for _, name := range []string{"", "   ", " . "} {
		result, err := o.Organize(context.Background(), []models.Document{doc("nfe_saida.xml", "<a/>")}, models.CompanyContext{Name: name})
		assert.Nil(t, result)
		require.Error(t, err)
		assert.True(t, fiscalerror.IsPrecondition(err))
	}

	require.Len(t, rec.runs, 3)
	assert.Equal(t, models.StatusFailed, rec.runs[0].Status)
	assert.NotEmpty(t, rec.runs[0].Error)
}

func TestOrganize_InvalidCNPJ(t *testing.T) {
	o := newOrganizer(t, Options{})
	_, err := o.Organize(context.Background(), nil, models.CompanyContext{Name: "Acme", TaxID: "123"})
	assert.True(t, fiscalerror.IsPrecondition(err))
}

func TestOrganize_RoundTrip(t *testing.T) {
	o := newOrganizer(t, Options{})
	docs := []models.Document{
		doc("cte_entrada_1.xml", "<CTe/>"),
		doc("venda.xml", nfe(acmeCNPJ, "99888777000166")),
		doc("compra.xml", nfe("99888777000166", acmeCNPJ)),
		doc("efd.txt", "|0000|017|"),
		doc("livro.txt", "qualquer"),
		doc("quebrado.xml", "<nfeProc>"),
		doc("foto.jpg", "binary"),
		zipDoc(t, "lote.zip",
			archive.Entry{Path: "pasta/nfse_tomados.pdf", Content: []byte("%PDF")},
			archive.Entry{Path: "vazio.xml", Content: nil},
		),
		doc("corrompido.zip", "not a zip"),
	}

	result, err := o.Organize(context.Background(), docs, models.CompanyContext{Name: "Acme", TaxID: acmeCNPJ})
	require.NoError(t, err)

	paths := listArchive(t, result.Archive)
	assert.ElementsMatch(t, []string{
		"CTE_ENTRADA/cte_entrada_1.xml",
		"NFE_SAIDA/venda.xml",
		"NFE_ENTRADA/compra.xml",
		"SPED/efd.txt",
		"TXT/livro.txt",
		"OUTROS/foto.jpg",
		"NFS_TOMADOS/nfse_tomados.pdf",
	}, paths)
	assert.Equal(t, []string{"quebrado.xml", "vazio.xml", "corrompido.zip"}, result.Unreadable)

	seen := map[string]int{}
	for _, p := range paths {
		seen[models.BaseName(p)]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestOrganize_Idempotent(t *testing.T) {
	o := newOrganizer(t, Options{})
	docs := []models.Document{
		doc("b_nfe_saida.xml", "<NFe/>"),
		doc("a.txt", "NFS PRESTADO"),
		doc("planilha.xls", "x"),
	}
	company := models.CompanyContext{Name: "Acme"}

	first, err := o.Organize(context.Background(), docs, company)
	require.NoError(t, err)
	second, err := o.Organize(context.Background(), docs, company)
	require.NoError(t, err)

	assert.Equal(t, listArchive(t, first.Archive), listArchive(t, second.Archive))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestOrganize_CollisionPolicies(t *testing.T) {
	docs := []models.Document{
		doc("nfe_saida.xml", "<first/>"),
		doc("nfe_saida.xml", "<second/>"),
		doc("nfe_saida.xml", "<third/>"),
	}
	company := models.CompanyContext{Name: "Acme"}

	t.Run("overwrite", func(t *testing.T) {
		result, err := newOrganizer(t, Options{}).Organize(context.Background(), docs, company)
		require.NoError(t, err)
		assert.Equal(t, []string{"NFE_SAIDA/nfe_saida.xml"}, listArchive(t, result.Archive))
		assert.Equal(t, "<third/>", contentOf(t, result.Archive, "nfe_saida.xml"))
		assert.Equal(t, models.StatusCompleted, result.Record.Status)
	})

	t.Run("rename", func(t *testing.T) {
		result, err := newOrganizer(t, Options{Policy: CollisionRename}).Organize(context.Background(), docs, company)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"NFE_SAIDA/nfe_saida.xml",
			"NFE_SAIDA/nfe_saida_1.xml",
			"NFE_SAIDA/nfe_saida_2.xml",
		}, listArchive(t, result.Archive))
		assert.Equal(t, "<second/>", contentOf(t, result.Archive, "nfe_saida_1.xml"))
	})

	t.Run("reject", func(t *testing.T) {
		result, err := newOrganizer(t, Options{Policy: CollisionReject}).Organize(context.Background(), docs, company)
		require.NoError(t, err)
		assert.Equal(t, []string{"NFE_SAIDA/nfe_saida.xml"}, listArchive(t, result.Archive))
		assert.Equal(t, "<first/>", contentOf(t, result.Archive, "nfe_saida.xml"))
		assert.Equal(t, []string{"nfe_saida.xml", "nfe_saida.xml"}, result.Conflicts)
		assert.Equal(t, models.StatusPartial, result.Record.Status)
	})
}

func TestOrganize_SameNameDifferentCategory(t *testing.T) {
	o := newOrganizer(t, Options{Policy: CollisionReject})
	docs := []models.Document{
		doc("nota.xml", nfe(acmeCNPJ, "99888777000166")),
		zipDoc(t, "outro.zip", archive.Entry{Path: "nota.xml", Content: []byte(nfe("99888777000166", acmeCNPJ))}),
	}

	result, err := o.Organize(context.Background(), docs, models.CompanyContext{Name: "Acme", TaxID: acmeCNPJ})
	require.NoError(t, err)

	paths := listArchive(t, result.Archive)
	sort.Strings(paths)
	assert.Equal(t, []string{"NFE_ENTRADA/nota.xml", "NFE_SAIDA/nota.xml"}, paths)
	assert.Empty(t, result.Conflicts)
}

func TestOrganize_DirectoryLookup(t *testing.T) {
	o := newOrganizer(t, Options{Directory: staticDirectory{"Acme": "12.345.678/0001-90"}})
	docs := []models.Document{doc("compra.xml", nfe("99888777000166", acmeCNPJ))}

	result, err := o.Organize(context.Background(), docs, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NFE_ENTRADA/compra.xml"}, listArchive(t, result.Archive))
	assert.Equal(t, acmeCNPJ, result.Record.TaxID)

	// An explicit tax id wins over the directory.
	result, err = o.Organize(context.Background(), docs, models.CompanyContext{Name: "Acme", TaxID: "99888777000166"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NFE_SAIDA/compra.xml"}, listArchive(t, result.Archive))
}

func TestOrganize_SanitizesCompanyName(t *testing.T) {
	o := newOrganizer(t, Options{})
	result, err := o.Organize(context.Background(), []models.Document{doc("a.txt", "x")}, models.CompanyContext{Name: "../Acme/Filial"})
	require.NoError(t, err)
	assert.Equal(t, "_Acme_Filial.zip", result.ArchiveName)
	assert.Equal(t, []string{"TXT/a.txt"}, listArchive(t, result.Archive))
}

func TestOrganize_WorkspaceReleased(t *testing.T) {
	workspace := t.TempDir()
	o := newOrganizer(t, Options{WorkspaceDir: workspace})

	_, err := o.Organize(context.Background(), []models.Document{doc("a.txt", "x")}, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Organize(ctx, []models.Document{doc("a.txt", "x")}, models.CompanyContext{Name: "Acme"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	entries, err := os.ReadDir(workspace)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOrganize_EmptyInput(t *testing.T) {
	result, err := newOrganizer(t, Options{}).Organize(context.Background(), nil, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)
	assert.Empty(t, listArchive(t, result.Archive))
	assert.Empty(t, result.Unreadable)
	assert.Equal(t, models.StatusCompleted, result.Record.Status)
}

func TestOrganize_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("disk full")}
	mock := logging.NewMockLogger()
	o := New(classifier.New(classifier.Options{}, nil), mock, Options{Recorder: rec, WorkspaceDir: t.TempDir()})

	result, err := o.Organize(context.Background(), []models.Document{doc("a.txt", "x")}, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)
	assert.NotNil(t, result)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, result.RunID, rec.runs[0].ID)
	assert.True(t, mock.HasEntry("WARN", "Failed to record run history"))
}

func TestOrganize_BrokenWorkbookStillPlaced(t *testing.T) {
	mock := logging.NewMockLogger()
	o := New(classifier.New(classifier.Options{}, nil), mock, Options{WorkspaceDir: t.TempDir()})

	result, err := o.Organize(context.Background(), []models.Document{doc("balancete.xlsx", "not a workbook")}, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PLANILHA/balancete.xlsx"}, listArchive(t, result.Archive))
	assert.True(t, mock.HasEntry("WARN", "Workbook could not be opened"))
}

func TestOrganize_Observers(t *testing.T) {
	var outcomes []models.DocumentOutcome
	var runs []models.RunRecord
	obs := ObserverFuncs{
		Document: func(o models.DocumentOutcome) { outcomes = append(outcomes, o) },
		Run:      func(r models.RunRecord) { runs = append(runs, r) },
	}
	o := newOrganizer(t, Options{Observers: []Observer{obs, ObserverFuncs{}}})

	_, err := o.Organize(context.Background(), []models.Document{doc("a.txt", "x"), doc("b.xml", "")}, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.CategoryTXT, outcomes[0].Category)
	assert.Equal(t, "TXT/a.txt", outcomes[0].Path)
	assert.NotEmpty(t, outcomes[1].Error)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusPartial, runs[0].Status)
}

func TestParseCollisionPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected CollisionPolicy
		wantErr  bool
	}{
		{"", CollisionOverwrite, false},
		{"Overwrite", CollisionOverwrite, false},
		{" rename ", CollisionRename, false},
		{"REJECT", CollisionReject, false},
		{"skip", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCollisionPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPathSet_RenameSkipsTaken(t *testing.T) {
	s := pathSet{}
	s.add("TXT/a.txt")
	s.add("TXT/a_1.txt")
	got, ok := s.resolve("TXT/a.txt", CollisionRename)
	assert.True(t, ok)
	assert.Equal(t, "TXT/a_2.txt", got)

	got, ok = s.resolve("TXT/b.txt", CollisionReject)
	assert.True(t, ok)
	assert.Equal(t, "TXT/b.txt", got)
}

func TestOrganize_MalformedXMLIsUnreadable(t *testing.T) {
	bodies := map[string]string{
		"plain text":         "hello",
		"unclosed root":      "<a>",
		"mismatched tags":    "<a></b>",
		"declaration only":   "<?xml version='1.0'?>",
		"control bytes":      "\x00\x01\x02",
		"two roots":          "<a/><b/>",
		"comment only":       "<!-- c -->",
		"trailing text":      "<a/>junk",
		"leading text":       "junk<a/>",
		"text between roots": "<a/>x<a/>",
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			result, err := newOrganizer(t, Options{}).Organize(context.Background(),
				[]models.Document{doc("nota.xml", body), doc("ok.txt", "x")},
				models.CompanyContext{Name: "Acme"})
			require.NoError(t, err)

			assert.Equal(t, []string{"nota.xml"}, result.Unreadable)
			assert.Equal(t, []string{"TXT/ok.txt"}, listArchive(t, result.Archive))
			assert.Equal(t, models.StatusPartial, result.Record.Status)
			require.Len(t, result.Record.Documents, 2)
			assert.Contains(t, result.Record.Documents[0].Error, "malformed XML")
		})
	}
}

func TestOrganize_WellFormedXMLWithWhitespaceIsPlaced(t *testing.T) {
	result, err := newOrganizer(t, Options{}).Organize(context.Background(),
		[]models.Document{doc("nota.xml", "\ufeff<?xml version='1.0'?>\n<!-- c -->\n<a/>\n\n")},
		models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)

	assert.Empty(t, result.Unreadable)
	assert.Equal(t, []string{"OUTROS/nota.xml"}, listArchive(t, result.Archive))
}

func TestOrganize_CollisionIgnoresCase(t *testing.T) {
	docs := []models.Document{
		doc("NFE_SAIDA.xml", "<first/>"),
		doc("nfe_saida.xml", "<second/>"),
	}
	company := models.CompanyContext{Name: "Acme"}

	t.Run("reject", func(t *testing.T) {
		result, err := newOrganizer(t, Options{Policy: CollisionReject}).Organize(context.Background(), docs, company)
		require.NoError(t, err)
		assert.Equal(t, []string{"NFE_SAIDA/NFE_SAIDA.xml"}, listArchive(t, result.Archive))
		assert.Equal(t, []string{"nfe_saida.xml"}, result.Conflicts)
	})

	t.Run("rename", func(t *testing.T) {
		result, err := newOrganizer(t, Options{Policy: CollisionRename}).Organize(context.Background(), docs, company)
		require.NoError(t, err)
		assert.Equal(t, []string{"NFE_SAIDA/NFE_SAIDA.xml", "NFE_SAIDA/nfe_saida_1.xml"}, listArchive(t, result.Archive))
	})

	t.Run("overwrite", func(t *testing.T) {
		result, err := newOrganizer(t, Options{}).Organize(context.Background(), docs, company)
		require.NoError(t, err)
		assert.Equal(t, []string{"NFE_SAIDA/NFE_SAIDA.xml"}, listArchive(t, result.Archive))
		assert.Equal(t, "<second/>", contentOf(t, result.Archive, "NFE_SAIDA.xml"))
	})
}

func TestPathSet_CaseFolded(t *testing.T) {
	s := pathSet{}
	s.add("NFE_SAIDA/NFE.xml")
	assert.True(t, s.has("nfe_saida/nfe.xml"))

	_, ok := s.resolve("NFE_SAIDA/nfe.xml", CollisionReject)
	assert.False(t, ok)

	got, ok := s.resolve("NFE_SAIDA/nfe.xml", CollisionOverwrite)
	assert.True(t, ok)
	assert.Equal(t, "NFE_SAIDA/NFE.xml", got)
}

func TestOrganize_DocumentsThatFailedToLoad(t *testing.T) {
	mock := logging.NewMockLogger()
	o := New(classifier.New(classifier.Options{}, nil), mock, Options{WorkspaceDir: t.TempDir()})
	docs := []models.Document{
		models.NewUnreadableDocument("danfe.pdf", errors.New("permission denied")),
		models.NewUnreadableDocument("lote.zip", errors.New("input/output error")),
		doc("ok.txt", "x"),
	}

	result, err := o.Organize(context.Background(), docs, models.CompanyContext{Name: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, []string{"danfe.pdf", "lote.zip"}, result.Unreadable)
	assert.Equal(t, []string{"TXT/ok.txt"}, listArchive(t, result.Archive))
	assert.Equal(t, models.StatusPartial, result.Record.Status)
	assert.Contains(t, result.Record.Documents[0].Error, "permission denied")
	assert.True(t, mock.HasEntry("WARN", "Skipping unreadable document"))
}
