// Package organizer runs the batch flow: expand archives, drop unreadable
// documents, classify the rest, lay them out as <company>/<category>/<name>
// in a private temporary workspace, and pack that tree into one ZIP.
package organizer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/fiscal-organizer/internal/archive"
	"fjacquet/fiscal-organizer/internal/fiscalerror"
	"fjacquet/fiscal-organizer/internal/history"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/xmlutils"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Classifier resolves the category of one document.
type Classifier interface {
	Classify(ctx context.Context, doc models.Document, company models.CompanyContext) models.Classification
}

// TaxIDLookup resolves a company's CNPJ from its name.
type TaxIDLookup interface {
	Lookup(name string) (string, bool)
}

// Options configure an Organizer. The zero value is usable.
type Options struct {
	Policy       CollisionPolicy
	WorkspaceDir string
	Recorder     history.Recorder
	Directory    TaxIDLookup
	Observers    []Observer
}

// Organizer is safe for concurrent use: every run gets its own workspace.
type Organizer struct {
	classifier   Classifier
	logger       logging.Logger
	policy       CollisionPolicy
	workspaceDir string
	recorder     history.Recorder
	directory    TaxIDLookup
	observers    []Observer
}

// Result is the outcome of one run.
type Result struct {
	RunID       string
	ArchiveName string
	Archive     []byte
	// Unreadable lists documents skipped as empty, unparseable or broken archives.
	Unreadable []string
	// Conflicts lists documents dropped by CollisionReject.
	Conflicts []string
	Record    models.RunRecord
}

// New creates an Organizer.
func New(classifier Classifier, logger logging.Logger, opts Options) *Organizer {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.Policy == "" {
		opts.Policy = CollisionOverwrite
	}
	if opts.Recorder == nil {
		opts.Recorder = history.NopRecorder{}
	}
	return &Organizer{
		classifier:   classifier,
		logger:       logger.WithField(logging.FieldComponent, "organizer"),
		policy:       opts.Policy,
		workspaceDir: opts.WorkspaceDir,
		recorder:     opts.Recorder,
		directory:    opts.Directory,
		observers:    append([]Observer(nil), opts.Observers...),
	}
}

// run holds the state of one Organize call.
type run struct {
	root       string
	company    models.CompanyContext
	written    pathSet
	record     *models.RunRecord
	unreadable []string
	conflicts  []string
	log        logging.Logger
}

// Organize processes docs strictly in order and returns the packed archive.
// Per-document problems never fail the run; an invalid company or a
// workspace I/O failure does.
func (o *Organizer) Organize(ctx context.Context, docs []models.Document, company models.CompanyContext) (*Result, error) {
	record := models.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Company:   company.Name,
		TaxID:     company.TaxID,
		Documents: []models.DocumentOutcome{},
	}
	log := o.logger.WithField(logging.FieldRunID, record.ID)

	result, err := o.organize(ctx, docs, company, &record, log)

	record.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		record.Status = models.StatusFailed
		record.Error = err.Error()
	case len(result.Unreadable) > 0 || len(result.Conflicts) > 0:
		record.Status = models.StatusPartial
	default:
		record.Status = models.StatusCompleted
	}
	o.finish(ctx, record, log)

	if err != nil {
		return nil, err
	}
	result.Record = record
	return result, nil
}

func (o *Organizer) organize(ctx context.Context, docs []models.Document, company models.CompanyContext, record *models.RunRecord, log logging.Logger) (*Result, error) {
	company, err := o.resolveCompany(company)
	if err != nil {
		return nil, err
	}
	record.Company, record.TaxID = company.Name, company.TaxID
	log = log.WithField(logging.FieldCompany, company.Name)

	workspace, err := os.MkdirTemp(o.workspaceDir, "fiscal-organizer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove workspace", logging.F(logging.FieldPath, workspace))
		}
	}()

	r := &run{
		root:    filepath.Join(workspace, company.Name),
		company: company,
		written: pathSet{},
		record:  record,
		log:     log,
	}
	if err := os.MkdirAll(r.root, models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("failed to create company folder: %w", err)
	}

	log.Info("Organizing documents",
		logging.F(logging.FieldCount, len(docs)),
		logging.F(logging.FieldPolicy, o.policy))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted: %w", err)
		}
		if !doc.IsArchive() || doc.ReadErr() != nil {
			if err := o.process(ctx, r, doc); err != nil {
				return nil, err
			}
			continue
		}

		entries, err := archive.Expand(doc)
		if err != nil {
			o.skip(r, doc, err)
			continue
		}
		log.Debug("Expanded archive",
			logging.F(logging.FieldFile, doc.Name),
			logging.F(logging.FieldCount, len(entries)))
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run aborted: %w", err)
			}
			if err := o.process(ctx, r, entry); err != nil {
				return nil, err
			}
		}
	}

	data, err := archive.ZipDirectory(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", company.Name, err)
	}
	record.ArchiveSize = len(data)

	log.Info("Organized documents",
		logging.F("placed", len(r.written)),
		logging.F("unreadable", len(r.unreadable)),
		logging.F("conflicts", len(r.conflicts)))

	return &Result{
		RunID:       record.ID,
		ArchiveName: company.Name + models.ExtZIP,
		Archive:     data,
		Unreadable:  r.unreadable,
		Conflicts:   r.conflicts,
	}, nil
}

// resolveCompany validates the company and fills a missing CNPJ from the directory.
func (o *Organizer) resolveCompany(company models.CompanyContext) (models.CompanyContext, error) {
	taxID := company.TaxID
	if strings.TrimSpace(taxID) == "" && o.directory != nil {
		if found, ok := o.directory.Lookup(company.Name); ok {
			taxID = found
		}
	}
	return models.NewCompanyContext(company.Name, taxID)
}

// process classifies and writes one non-archive document. Only workspace
// I/O errors are returned.
func (o *Organizer) process(ctx context.Context, r *run, doc models.Document) error {
	if err := checkReadable(doc); err != nil {
		o.skip(r, doc, err)
		return nil
	}
	if doc.Ext() == models.ExtXLSX {
		inspectWorkbook(doc, r.log)
	}

	cls := o.classifier.Classify(ctx, doc, r.company)
	outcome := models.DocumentOutcome{Name: doc.Name, Source: doc.Source, Category: cls.Category}

	target, ok := r.written.resolve(path.Join(string(cls.Category), doc.Name), o.policy)
	if !ok {
		outcome.Error = "conflicts with an earlier document of the same name"
		r.conflicts = append(r.conflicts, doc.Name)
		r.log.Warn("Document rejected on path collision",
			logging.F(logging.FieldFile, doc.Name),
			logging.F(logging.FieldCategory, cls.Category))
		o.emit(r, outcome)
		return nil
	}
	if r.written.has(target) {
		r.log.Debug("Overwriting earlier document", logging.F(logging.FieldPath, target))
	}

	full := filepath.Join(r.root, filepath.FromSlash(target))
	if err := os.MkdirAll(filepath.Dir(full), models.PermissionDirectory); err != nil {
		return fmt.Errorf("failed to create category folder: %w", err)
	}
	if err := os.WriteFile(full, doc.Bytes(), models.PermissionReportFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	r.written.add(target)

	outcome.Path = target
	r.log.Debug("Placed document",
		logging.F(logging.FieldFile, doc.Name),
		logging.F(logging.FieldCategory, cls.Category),
		logging.F(logging.FieldStrategy, cls.Strategy),
		logging.F(logging.FieldReason, cls.Reason),
		logging.F(logging.FieldPath, target))
	o.emit(r, outcome)
	return nil
}

func (o *Organizer) skip(r *run, doc models.Document, err error) {
	r.unreadable = append(r.unreadable, doc.Name)
	r.log.WithError(err).Warn("Skipping unreadable document",
		logging.F(logging.FieldFile, doc.Name),
		logging.F(logging.FieldSource, doc.Source))
	o.emit(r, models.DocumentOutcome{Name: doc.Name, Source: doc.Source, Error: err.Error()})
}

func (o *Organizer) emit(r *run, outcome models.DocumentOutcome) {
	r.record.Documents = append(r.record.Documents, outcome)
	for _, obs := range o.observers {
		obs.ObserveDocument(outcome)
	}
}

// finish records the run and notifies observers. Recording failures are logged only.
func (o *Organizer) finish(ctx context.Context, record models.RunRecord, log logging.Logger) {
	if err := o.recorder.Record(context.WithoutCancel(ctx), record); err != nil {
		log.WithError(err).Warn("Failed to record run history")
	}
	for _, obs := range o.observers {
		obs.ObserveRun(record)
	}
}

// checkReadable rejects documents that failed to load, empty or
// unparseable .xml and empty .txt documents. Other types are always readable.
func checkReadable(doc models.Document) error {
	if doc.Name == "" {
		return &fiscalerror.UnreadableDocumentError{Reason: "missing file name"}
	}
	if err := doc.ReadErr(); err != nil {
		return &fiscalerror.UnreadableDocumentError{Name: doc.Name, Reason: "read failed", Err: err}
	}
	switch doc.Ext() {
	case models.ExtXML:
		if doc.IsEmpty() {
			return &fiscalerror.UnreadableDocumentError{Name: doc.Name, Reason: "empty content", Err: fiscalerror.ErrEmptyContent}
		}
		if _, err := xmlutils.BuildTree(doc.Bytes()); err != nil {
			return &fiscalerror.UnreadableDocumentError{Name: doc.Name, Reason: "malformed XML", Err: err}
		}
	case models.ExtTXT:
		if doc.IsEmpty() {
			return &fiscalerror.UnreadableDocumentError{Name: doc.Name, Reason: "empty content", Err: fiscalerror.ErrEmptyContent}
		}
	}
	return nil
}

// inspectWorkbook warns about workbooks excelize cannot open. They are
// still placed under their category.
func inspectWorkbook(doc models.Document, log logging.Logger) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Bytes()))
	if err != nil {
		log.WithError(err).Warn("Workbook could not be opened", logging.F(logging.FieldFile, doc.Name))
		return
	}
	defer func() { _ = f.Close() }()
	log.Debug("Workbook inspected",
		logging.F(logging.FieldFile, doc.Name),
		logging.F("sheets", len(f.GetSheetList())))
}
