package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/authorization"
	"github.com/smallbiznis/invoicely/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/invoice/render"
	obslogger "github.com/smallbiznis/invoicely/internal/observability/logger"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	"github.com/smallbiznis/invoicely/internal/providers/pdf"
	"github.com/smallbiznis/invoicely/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	"github.com/smallbiznis/invoicely/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultDueDays = 30

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Repo         invoicedomain.Repository
	Settings     settingsdomain.Service
	SettingsRepo settingsdomain.Repository
	Renderer     render.Renderer
	Exporter     pdf.Exporter
	Authz        authorization.Service
	Guard        *ratelimit.InvoiceGuard `optional:"true"`
	Metrics      *metrics.Metrics        `optional:"true"`
	Commits      *metrics.InvoiceMetrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node

	repo         invoicedomain.Repository
	settings     settingsdomain.Service
	settingsRepo settingsdomain.Repository
	renderer     render.Renderer
	exporter     pdf.Exporter
	authz        authorization.Service
	guard        *ratelimit.InvoiceGuard
	metrics      *metrics.Metrics
	commits      *metrics.InvoiceMetrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		clock: p.Clock,
		genID: p.GenID,

		repo:         p.Repo,
		settings:     p.Settings,
		settingsRepo: p.SettingsRepo,
		renderer:     p.Renderer,
		exporter:     p.Exporter,
		authz:        p.Authz,
		guard:        p.Guard,
		metrics:      p.Metrics,
		commits:      p.Commits,
	}
}

// Preview returns the number the next save would take. It never mutates.
func (s *Service) Preview(ctx context.Context, userID snowflake.ID) (invoicedomain.NextNumber, error) {
	settings, err := s.settings.Reload(ctx, userID)
	if err != nil {
		return invoicedomain.NextNumber{}, err
	}
	seq := settings.Sequence()
	return invoicedomain.NextNumber{InvoiceNumber: seq.Preview(), Counter: seq.Counter()}, nil
}

func (s *Service) Build(ctx context.Context, userID snowflake.ID, req invoicedomain.DraftRequest) (invoicedomain.Draft, error) {
	settings, err := s.settings.Reload(ctx, userID)
	if err != nil {
		return invoicedomain.Draft{}, err
	}
	return s.buildDraft(settings, req)
}

func (s *Service) buildDraft(settings settingsdomain.Settings, req invoicedomain.DraftRequest) (invoicedomain.Draft, error) {
	issue, due, err := s.resolveDates(req.IssueDate, req.DueDate)
	if err != nil {
		return invoicedomain.Draft{}, err
	}

	templateID := settings.Template
	if t := strings.TrimSpace(req.Template); t != "" {
		templateID = t
	}

	schema := settings.Schema()
	items := make([]invoicedomain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.Normalize(schema))
	}

	d := invoicedomain.Draft{
		Branding:      settings.Branding(),
		InvoiceNumber: settings.Sequence().Preview(),
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientAddress: strings.TrimSpace(req.ClientAddress),
		ClientEmail:   strings.TrimSpace(req.ClientEmail),
		ClientPhone:   strings.TrimSpace(req.ClientPhone),
		IssueDate:     issue,
		DueDate:       due,
		Items:         items,
		Columns:       schema,
		Tax:           settings.Tax(),
		Terms:         settings.TermsConditions,
		Template:      render.NormalizeTemplateID(templateID),
		Status:        invoicedomain.StatusDraft,
	}
	d.Recompute()
	return d, nil
}

// resolveDates defaults the issue date to today and the due date to thirty
// days after issue.
func (s *Service) resolveDates(issueRaw, dueRaw string) (string, string, error) {
	issue := s.clock.Now()
	if v := strings.TrimSpace(issueRaw); v != "" {
		parsed, err := time.Parse(invoicedomain.DateLayout, v)
		if err != nil {
			return "", "", invoicedomain.ErrInvalidDate
		}
		issue = parsed
	}
	due := issue.AddDate(0, 0, defaultDueDays)
	if v := strings.TrimSpace(dueRaw); v != "" {
		parsed, err := time.Parse(invoicedomain.DateLayout, v)
		if err != nil {
			return "", "", invoicedomain.ErrInvalidDate
		}
		due = parsed
	}
	return issue.Format(invoicedomain.DateLayout), due.Format(invoicedomain.DateLayout), nil
}

func (s *Service) PreviewHTML(ctx context.Context, userID snowflake.ID, req invoicedomain.DraftRequest) ([]byte, error) {
	d, err := s.Build(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.render(ctx, d, d.Template)
	if err != nil {
		return nil, err
	}
	return doc.HTML, nil
}

// Save inserts the invoice and advances the owner's counter in one
// transaction. The counter only moves if it still holds the number this
// invoice took; otherwise the insert is rolled back with ErrNumberTaken.
func (s *Service) Save(ctx context.Context, userID snowflake.ID, req invoicedomain.DraftRequest) (invoicedomain.Invoice, error) {
	log := obslogger.WithContext(ctx, s.log).With(zap.String("owner_id", userID.String()))

	lease, err := s.guard.LockSave(ctx, userID)
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		s.commits.RecordCommit(metrics.CommitResultConflict)
		return invoicedomain.Invoice{}, invoicedomain.ErrSaveInProgress
	case err != nil:
		log.Warn("invoice save lock unavailable", zap.Error(err))
	default:
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("invoice save lock release failed", zap.Error(err))
			}
		}()
	}

	// Make sure the settings row exists before the transaction reads it.
	if _, err := s.settings.Load(ctx, userID); err != nil {
		return invoicedomain.Invoice{}, err
	}
	defer s.settings.Invalidate(userID)

	var saved invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.settingsRepo.FindByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return settingsdomain.ErrSettingsNotFound
		}

		d, err := s.buildDraft(*current, req)
		if err != nil {
			return err
		}
		if !d.Totals.Storable() {
			return invoicedomain.ErrAmountTooLarge
		}

		now := s.clock.Now()
		record := d.Record(s.genID.Generate(), userID)
		record.CreatedAt = now
		record.UpdatedAt = now
		if err := s.repo.Insert(ctx, tx, &record); err != nil {
			return err
		}
		if err := s.settingsRepo.IncrementCounter(ctx, tx, userID, current.InvoiceCounter, now); err != nil {
			return err
		}
		saved = record
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, s.commitError(log, err)
	}

	s.commits.RecordCommit(metrics.CommitResultCommitted)
	s.metrics.RecordInvoiceSaved(ctx, string(saved.Status))
	log.Info("invoice saved",
		zap.String("invoice_id", saved.ID.String()),
		zap.String("invoice_number", saved.InvoiceNumber),
	)
	return saved, nil
}

func (s *Service) commitError(log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, settingsdomain.ErrCounterConflict):
		s.commits.RecordCounterConflict()
		log.Info("invoice number taken by a concurrent save")
		return invoicedomain.ErrNumberTaken
	case db.IsDuplicateKeyErr(err):
		s.commits.RecordCommitFailure(err)
		return invoicedomain.ErrNumberTaken
	case db.IsRetryableTxErr(err):
		s.commits.RecordCounterConflict()
		log.Info("invoice save lost a serialization race", zap.Error(err))
		return invoicedomain.ErrNumberTaken
	case errors.Is(err, invoicedomain.ErrInvalidDate),
		errors.Is(err, invoicedomain.ErrAmountTooLarge):
		return err
	default:
		s.commits.RecordCommitFailure(err)
		log.Error("invoice save failed", zap.Error(err))
		return err
	}
}

// List shows every user's invoices to callers allowed invoice.view_all and
// only their own to everyone else.
func (s *Service) List(ctx context.Context, actor invoicedomain.Actor, filter invoicedomain.ListFilter) (invoicedomain.ListResult, error) {
	if err := s.authorize(ctx, actor, authorization.ActionInvoiceView); err != nil {
		return invoicedomain.ListResult{}, err
	}
	if filter.Status != "" {
		status, err := invoicedomain.ParseStatus(filter.Status)
		if err != nil {
			return invoicedomain.ListResult{}, err
		}
		filter.Status = string(status)
	}

	if s.canViewAll(ctx, actor) {
		return s.repo.ListAll(ctx, s.db, filter)
	}
	return s.repo.ListByUser(ctx, s.db, actor.UserID, filter)
}

func (s *Service) Get(ctx context.Context, actor invoicedomain.Actor, id snowflake.ID) (invoicedomain.Invoice, error) {
	if err := s.authorize(ctx, actor, authorization.ActionInvoiceView); err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.load(ctx, actor, id)
}

func (s *Service) UpdateStatus(ctx context.Context, actor invoicedomain.Actor, id snowflake.ID, raw string) error {
	if err := s.authorize(ctx, actor, authorization.ActionInvoiceUpdate); err != nil {
		return err
	}
	status, err := invoicedomain.ParseStatus(raw)
	if err != nil {
		return err
	}
	inv, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if inv.Status == status {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, s.db, id, status, s.clock.Now()); err != nil {
		return err
	}
	obslogger.WithContext(ctx, s.log).Info("invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("from", string(inv.Status)),
		zap.String("to", string(status)),
	)
	return nil
}

// RenderHTML re-renders a stored invoice with its owner's current branding.
// An empty templateID keeps the template the invoice was saved with.
func (s *Service) RenderHTML(ctx context.Context, actor invoicedomain.Actor, id snowflake.ID, templateID string) ([]byte, error) {
	if err := s.authorize(ctx, actor, authorization.ActionInvoiceView); err != nil {
		return nil, err
	}
	d, err := s.storedDraft(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(templateID) == "" {
		templateID = d.Template
	}
	doc, err := s.render(ctx, d, templateID)
	if err != nil {
		return nil, err
	}
	return doc.HTML, nil
}

// ExportPDF renders the stored invoice and hands it to the exporter. A
// zero-length export is reported as ErrExportFailed.
func (s *Service) ExportPDF(ctx context.Context, actor invoicedomain.Actor, id snowflake.ID) (invoicedomain.PDF, error) {
	if err := s.authorize(ctx, actor, authorization.ActionInvoiceExport); err != nil {
		return invoicedomain.PDF{}, err
	}

	res, err := s.guard.AllowExport(ctx, actor.UserID)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("export rate limiter unavailable", zap.Error(err))
	} else if !res.Allowed {
		s.metrics.RecordRateLimitDenied(ctx, "invoice.pdf", metrics.FailureReasonRateLimited)
		return invoicedomain.PDF{}, invoicedomain.ErrExportThrottled
	}

	d, err := s.storedDraft(ctx, actor, id)
	if err != nil {
		return invoicedomain.PDF{}, err
	}
	doc, err := s.render(ctx, d, d.Template)
	if err != nil {
		return invoicedomain.PDF{}, err
	}

	content := s.exporter.Export(ctx, pdf.FromDocument(doc))
	if len(content) == 0 {
		s.metrics.RecordPDFExport(ctx, s.exporter.Name(), "empty")
		return invoicedomain.PDF{}, invoicedomain.ErrExportFailed
	}
	s.metrics.RecordPDFExport(ctx, s.exporter.Name(), "ok")
	return invoicedomain.PDF{Filename: d.InvoiceNumber + ".pdf", Content: content}, nil
}

// Dashboard aggregates all invoices for callers allowed dashboard.view.
func (s *Service) Dashboard(ctx context.Context, actor invoicedomain.Actor) (invoicedomain.Stats, error) {
	if err := s.authorizeOn(ctx, actor, authorization.ObjectDashboard, authorization.ActionDashboardView); err != nil {
		return invoicedomain.Stats{}, err
	}
	return s.repo.Stats(ctx, s.db, nil)
}

func (s *Service) storedDraft(ctx context.Context, actor invoicedomain.Actor, id snowflake.ID) (invoicedomain.Draft, error) {
	inv, err := s.load(ctx, actor, id)
	if err != nil {
		return invoicedomain.Draft{}, err
	}
	owner, err := s.settings.Load(ctx, inv.UserID)
	if err != nil {
		return invoicedomain.Draft{}, err
	}
	return invoicedomain.DraftFromRecord(inv, owner.Branding()), nil
}

func (s *Service) render(ctx context.Context, d invoicedomain.Draft, templateID string) (*render.Document, error) {
	doc, err := s.renderer.Render(templateID, render.Resolve(d))
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTemplateRender(ctx, doc.TemplateID)
	return doc, nil
}

// load fetches an invoice the actor may see. Someone else's invoice is
// reported as missing unless the actor may view all invoices.
func (s *Service) load(ctx context.Context, actor invoicedomain.Actor, id snowflake.ID) (invoicedomain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if inv == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	if inv.UserID != actor.UserID && !s.canViewAll(ctx, actor) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	return *inv, nil
}

func (s *Service) canViewAll(ctx context.Context, actor invoicedomain.Actor) bool {
	return s.authz.Allowed(ctx, actor.UserID, actor.Role, authorization.ObjectInvoice, authorization.ActionInvoiceViewAll)
}

func (s *Service) authorize(ctx context.Context, actor invoicedomain.Actor, action string) error {
	return s.authorizeOn(ctx, actor, authorization.ObjectInvoice, action)
}

func (s *Service) authorizeOn(ctx context.Context, actor invoicedomain.Actor, object, action string) error {
	err := s.authz.Authorize(ctx, actor.UserID, actor.Role, object, action)
	if errors.Is(err, authorization.ErrForbidden) {
		return invoicedomain.ErrForbidden
	}
	return err
}
