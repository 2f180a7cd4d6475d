// Package applicants lists, reads, creates and re-statuses applicant pages.
package applicants

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/pagestore"
	"recruiting-pipeline/internal/common/validation"
	"recruiting-pipeline/internal/interview"
	"recruiting-pipeline/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Audit event types.
const (
	EventStatusUpdated       = "applicant.status_updated"
	EventApplicationReceived = "applicant.application_received"
)

type Directory struct {
	store   pagestore.Directory
	codec   *interview.Codec
	cache   *CountCache
	auditor interview.Auditor
	logger  logger.Logger
	now     func() time.Time
}

type Option func(*Directory)

func WithCountCache(c *CountCache) Option {
	return func(d *Directory) { d.cache = c }
}

func WithAuditor(a interview.Auditor) Option {
	return func(d *Directory) { d.auditor = a }
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func NewDirectory(store pagestore.Directory, codec *interview.Codec, log logger.Logger, opts ...Option) *Directory {
	d := &Directory{
		store:  store,
		codec:  codec,
		logger: logger.Component(log, "applicants"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns one page of applicants. TotalCount is filled only for the
// first page and left nil when counting fails.
func (d *Directory) List(ctx context.Context, limit int, cursor string) (*models.ApplicantPage, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 0 || limit > MaxPageSize {
		return nil, errors.NewInvalidPageSizeError(limit, MaxPageSize)
	}

	res, err := d.store.QueryPages(ctx, pagestore.ListOptions{PageSize: limit, Cursor: cursor})
	if err != nil {
		d.logger.Error("Failed to list applicants", map[string]interface{}{
			"cursor": cursor,
			"error":  err.Error(),
		})
		return nil, errors.NewStoreReadFailedError(err)
	}

	out := &models.ApplicantPage{
		Items:      make([]*models.Applicant, 0, len(res.Pages)),
		HasMore:    res.HasMore,
		NextCursor: res.NextCursor,
	}
	for _, p := range res.Pages {
		out.Items = append(out.Items, toApplicant(p))
	}

	if cursor == "" {
		if n, ok := d.totalCount(ctx); ok {
			out.TotalCount = &n
		}
	}
	return out, nil
}

func (d *Directory) totalCount(ctx context.Context) (int, bool) {
	if n, ok := d.cache.Get(ctx); ok {
		return n, true
	}
	n, err := d.Count(ctx)
	if err != nil {
		d.logger.Warn("Failed to count applicants", map[string]interface{}{"error": err.Error()})
		return 0, false
	}
	d.cache.Set(ctx, n)
	return n, true
}

// Count pages through the whole database at the maximum page size.
func (d *Directory) Count(ctx context.Context) (int, error) {
	total, cursor := 0, ""
	for {
		res, err := d.store.QueryPages(ctx, pagestore.ListOptions{PageSize: MaxPageSize, Cursor: cursor})
		if err != nil {
			return 0, err
		}
		total += len(res.Pages)
		if !res.HasMore || res.NextCursor == "" {
			return total, nil
		}
		cursor = res.NextCursor
	}
}

// Get returns one applicant with its decoded interview stages.
func (d *Directory) Get(ctx context.Context, id string) (*models.Applicant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewMissingFieldsError("id is required")
	}
	page, err := d.store.GetPage(ctx, id)
	if err != nil {
		if stderrors.Is(err, pagestore.ErrPageNotFound) {
			return nil, errors.NewApplicantNotFoundError(id)
		}
		return nil, errors.NewStoreReadFailedError(err)
	}

	a := toApplicant(page)
	for _, stage := range models.Stages {
		blob := page.Field(stage.TextField())
		if blob == "" {
			continue
		}
		if rec := d.codec.Decode(blob); rec != nil {
			if a.Interviews == nil {
				a.Interviews = make(map[models.Stage]*models.StageRecord, len(models.Stages))
			}
			a.Interviews[stage] = rec
		}
	}
	return a, nil
}

// UpdateStatus overwrites the Applicant Status field.
func (d *Directory) UpdateStatus(ctx context.Context, id, status string) (*models.StatusChange, error) {
	id = strings.TrimSpace(id)
	status = strings.TrimSpace(status)
	if id == "" {
		return nil, errors.NewMissingFieldsError("applicationId is required")
	}
	if status == "" {
		return nil, errors.NewMissingStatusError("status is required")
	}

	if err := d.store.UpdatePage(ctx, id, map[string]string{models.FieldApplicantStatus: status}); err != nil {
		if stderrors.Is(err, pagestore.ErrPageNotFound) {
			return nil, errors.NewApplicantNotFoundError(id)
		}
		d.logger.Error("Failed to update applicant status", map[string]interface{}{
			"application_id": id,
			"error":          err.Error(),
		})
		return nil, errors.NewStoreWriteFailedError(err)
	}

	change := &models.StatusChange{ApplicationID: id, Status: status, UpdatedAt: d.now().UTC()}
	if d.auditor != nil {
		d.auditor.RecordEvent(ctx, EventStatusUpdated, id, map[string]interface{}{"status": status})
	}
	d.logger.Info("Applicant status updated", map[string]interface{}{
		"application_id": id,
		"status":         status,
	})
	return change, nil
}

// Apply creates a new applicant page from a career-site submission.
func (d *Directory) Apply(ctx context.Context, app models.Application) (*models.Applicant, error) {
	app = trimApplication(app)
	if res := validation.CareerApplicationSchema.Validate(app); !res.Valid {
		return nil, errors.NewInvalidApplicationError(res.Summary())
	}

	page, err := d.store.CreatePage(ctx, app.Fields())
	if err != nil {
		d.logger.Error("Failed to create applicant", map[string]interface{}{
			"position": app.Position,
			"error":    err.Error(),
		})
		return nil, errors.NewStoreWriteFailedError(err)
	}

	d.cache.Invalidate(ctx)
	if d.auditor != nil {
		d.auditor.RecordEvent(ctx, EventApplicationReceived, page.ID, map[string]interface{}{
			"position": app.Position,
		})
	}
	d.logger.Info("Application received", map[string]interface{}{
		"application_id": page.ID,
		"position":       app.Position,
	})
	return toApplicant(page), nil
}

func trimApplication(a models.Application) models.Application {
	for _, f := range []*string{
		&a.FullName, &a.Email, &a.Phone, &a.Position, &a.CurrentSalary,
		&a.ExpectedSalary, &a.Experience, &a.NoticePeriod, &a.LinkedIn, &a.ResumeURL,
	} {
		*f = strings.TrimSpace(*f)
	}
	return a
}

func toApplicant(p *pagestore.Page) *models.Applicant {
	a := &models.Applicant{
		ID:             p.ID,
		FullName:       p.Field(models.FieldFullName),
		Email:          p.Field(models.FieldEmail),
		Position:       p.Field(models.FieldPosition),
		Status:         p.Field(models.FieldApplicantStatus),
		Properties:     p.Fields,
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
	}
	if a.Properties == nil {
		a.Properties = map[string]string{}
	}
	if v := strings.TrimSpace(p.Field(models.FieldTotalScore)); v != "" {
		total := models.ParseNumber(v)
		a.TotalScore = &total
	}
	for _, stage := range models.Stages {
		if v := strings.TrimSpace(p.Field(stage.ScoreField())); v != "" {
			if a.StageScores == nil {
				a.StageScores = make(map[models.Stage]float64, len(models.Stages))
			}
			a.StageScores[stage] = models.ParseNumber(v)
		}
	}
	return a
}
