package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/agents"
	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/models"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const minRejectionComment = 10

// NotificationStore persists the inbox copy of every message.
type NotificationStore interface {
	SaveNotification(ctx context.Context, notification *models.Notification) error
}

// UserDirectory resolves callers and the supervisor pool.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListSupervisors(ctx context.Context) ([]models.User, error)
}

// EntityDirectory resolves entity codes to display names.
type EntityDirectory interface {
	EntityName(ctx context.Context, code string) string
}

// Publisher pushes a message to the recipient's live channels. Fire and
// forget: delivery problems never propagate into the workflow.
type Publisher interface {
	Publish(notification *models.Notification)
}

// ReportWorkflow owns report submission, the three-stage assessment pipeline
// and the supervisory review decisions. All status changes go through the
// store's AdvanceReport, so concurrent runs on the same report lose with a
// conflict instead of interleaving.
type ReportWorkflow struct {
	reports       models.ReportStore
	notifications NotificationStore
	users         UserDirectory
	entities      EntityDirectory

	validator agents.Validator
	assessor  agents.Assessor
	composer  agents.Composer

	publisher Publisher
	audit     AuditSink

	stageTimeout   time.Duration
	strictFailures bool
	background     bool
	logger         *logrus.Logger
}

// Deps wires the workflow's collaborators.
type Deps struct {
	Reports       models.ReportStore
	Notifications NotificationStore
	Users         UserDirectory
	Entities      EntityDirectory
	Validator     agents.Validator
	Assessor      agents.Assessor
	Composer      agents.Composer
	Publisher     Publisher
	Audit         AuditSink

	// StageTimeout bounds each capability call; zero means the configured
	// default. Background controls whether Submit runs the pipeline in its
	// own goroutine.
	StageTimeout   time.Duration
	StrictFailures bool
	Background     bool
}

func NewReportWorkflow(deps Deps) *ReportWorkflow {
	stageTimeout := deps.StageTimeout
	if stageTimeout <= 0 {
		stageTimeout = config.PipelineStageTimeout()
	}
	return &ReportWorkflow{
		reports:        deps.Reports,
		notifications:  deps.Notifications,
		users:          deps.Users,
		entities:       deps.Entities,
		validator:      deps.Validator,
		assessor:       deps.Assessor,
		composer:       deps.Composer,
		publisher:      deps.Publisher,
		audit:          deps.Audit,
		stageTimeout:   stageTimeout,
		strictFailures: deps.StrictFailures,
		background:     deps.Background,
		logger:         config.GetLogger(),
	}
}

// Submit authorizes and records a new report in `submitted` status, then
// hands it to the pipeline. The returned report reflects the submitted state
// when the pipeline runs in the background.
func (w *ReportWorkflow) Submit(ctx context.Context, user *models.User, entityCode string, kind models.ReportKind, fileName string, data []byte) (*models.Report, error) {
	if !kind.Valid() {
		return nil, &utils.InputError{Reason: fmt.Sprintf("unknown report type %q", kind)}
	}
	if err := models.Authorize(user, models.ActionSubmit, &models.Report{EntityCode: entityCode}); err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		EntityCode:  entityCode,
		EntityName:  w.entities.EntityName(ctx, entityCode),
		ReportKind:  kind,
		FileName:    fileName,
		FileSize:    int64(len(data)),
		Status:      models.ReportStatusSubmitted,
		SubmittedBy: user.ID,
		SubmittedAt: time.Now().UTC(),
	}
	if err := w.reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	w.audit.Record(ctx, &models.AuditRecord{
		ReportId: report.ID,
		Stage:    "submission",
		Outcome:  "created",
		Detail:   fmt.Sprintf("%s report %s for %s", kind, fileName, entityCode),
		ActorId:  user.ID,
	})

	doc := agents.Document{FileName: fileName, Data: data, Kind: kind}
	if w.background {
		// Detach from the request context: the pipeline outlives the
		// submission request. Correlation id is kept for log continuity.
		runCtx := context.Background()
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			runCtx = utils.SetCorrelationIdInContext(runCtx, cid)
		}
		go func() {
			if _, err := w.Run(runCtx, report.ID, doc); err != nil {
				config.LogError(w.logger, "reportWorkflow.go", "Submit", "background Run", report.ID, err)
			}
		}()
		return report, nil
	}

	return w.Run(ctx, report.ID, doc)
}

// Run executes the three-stage pipeline for one report. Stages run strictly
// in sequence; a capability failure is absorbed into a fallback outcome and
// never blocks the next stage. Re-running on an already-advanced report
// fails the first transition with a conflict.
func (w *ReportWorkflow) Run(ctx context.Context, reportId string, doc agents.Document) (*models.Report, error) {
	report, err := w.reports.AdvanceReport(ctx, reportId, models.ReportStatusSubmitted, models.ReportStatusValidating, nil)
	if err != nil {
		return nil, err
	}

	// Stage 1: structural validation.
	validation, vErr := runStage(ctx, w.stageTimeout, func(stageCtx context.Context) (*models.ValidationOutcome, error) {
		return w.validator.Validate(stageCtx, doc)
	})
	if vErr != nil {
		w.recordCapabilityFailure(ctx, reportId, "validate", vErr)
		validation = FallbackValidation(vErr)
		if w.strictFailures {
			report, err = w.reports.AdvanceReport(ctx, reportId, models.ReportStatusValidating, models.ReportStatusValidationFailed, func(r *models.Report) error {
				r.Validation = validation
				return nil
			})
			if err != nil {
				return nil, err
			}
			w.notifyPipelineFinished(ctx, report)
			return report, nil
		}
	}
	report, err = w.reports.AdvanceReport(ctx, reportId, models.ReportStatusValidating, models.ReportStatusValidated, func(r *models.Report) error {
		r.Validation = validation
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stage 2: risk analysis. Runs regardless of the validity flag; an
	// invalid report still needs a supervisory risk picture.
	report, err = w.reports.AdvanceReport(ctx, reportId, models.ReportStatusValidated, models.ReportStatusAnalyzing, nil)
	if err != nil {
		return nil, err
	}
	risk, aErr := runStage(ctx, w.stageTimeout, func(stageCtx context.Context) (*models.RiskOutcome, error) {
		return w.assessor.Assess(stageCtx, doc, validation)
	})
	if aErr != nil {
		w.recordCapabilityFailure(ctx, reportId, "assess", aErr)
		risk = FallbackRisk()
		if w.strictFailures {
			report, err = w.reports.AdvanceReport(ctx, reportId, models.ReportStatusAnalyzing, models.ReportStatusAnalysisFailed, func(r *models.Report) error {
				r.AttachRisk(risk)
				return nil
			})
			if err != nil {
				return nil, err
			}
			w.notifyPipelineFinished(ctx, report)
			return report, nil
		}
	}
	report, err = w.reports.AdvanceReport(ctx, reportId, models.ReportStatusAnalyzing, models.ReportStatusAnalyzed, func(r *models.Report) error {
		r.AttachRisk(risk)
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.audit.Record(ctx, &models.AuditRecord{
		ReportId: reportId,
		Stage:    "pipeline",
		Outcome:  "analyzed",
		Detail:   fmt.Sprintf("score=%.1f urgency=%s valid=%t", risk.Score, risk.Urgency, validation.IsValid),
	})

	// Stage 3: notifications. A report never finishes the pipeline silently.
	w.notifyPipelineFinished(ctx, report)
	return report, nil
}

// Approve moves an analyzed report to approved and notifies the submitter.
func (w *ReportWorkflow) Approve(ctx context.Context, user *models.User, reportId string, comment string) (*models.Report, error) {
	return w.review(ctx, user, reportId, models.ActionApprove, comment)
}

// Reject moves an analyzed report to rejected. The comment is mandatory so
// the submitter gets actionable feedback.
func (w *ReportWorkflow) Reject(ctx context.Context, user *models.User, reportId string, comment string) (*models.Report, error) {
	if len(strings.TrimSpace(comment)) < minRejectionComment {
		return nil, &utils.InputError{
			Reason: fmt.Sprintf("rejection comment must be at least %d characters", minRejectionComment),
		}
	}
	return w.review(ctx, user, reportId, models.ActionReject, comment)
}

func (w *ReportWorkflow) review(ctx context.Context, user *models.User, reportId string, action models.Action, comment string) (*models.Report, error) {
	report, err := w.reports.GetReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if err := models.Authorize(user, action, report); err != nil {
		return nil, err
	}

	target := models.ReportStatusApproved
	event := models.EventKindApproved
	if action == models.ActionReject {
		target = models.ReportStatusRejected
		event = models.EventKindRejected
	}

	now := time.Now().UTC()
	updated, err := w.reports.AdvanceReport(ctx, reportId, models.ReportStatusAnalyzed, target, func(r *models.Report) error {
		r.ReviewedAt = &now
		r.ReviewedBy = user.ID
		r.DecisionComment = strings.TrimSpace(comment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.audit.Record(ctx, &models.AuditRecord{
		ReportId: reportId,
		Stage:    "review",
		Outcome:  string(target),
		Detail:   updated.DecisionComment,
		ActorId:  user.ID,
	})

	w.deliver(ctx, updated.SubmittedBy, updated, event, map[string]any{
		"report_id":   updated.ID,
		"file_name":   updated.FileName,
		"entity_name": updated.EntityName,
		"report_type": string(updated.ReportKind),
		"comment":     updated.DecisionComment,
		"reviewed_at": now.Format(time.RFC3339),
	}, decisionExpiry(now))

	return updated, nil
}

// Get returns one report, enforcing the caller's read scope.
func (w *ReportWorkflow) Get(ctx context.Context, user *models.User, reportId string) (*models.Report, error) {
	report, err := w.reports.GetReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if err := models.Authorize(user, models.ActionRead, report); err != nil {
		return nil, err
	}
	return report, nil
}

// List returns reports the caller may see. Submitters are confined to their
// entity scope; asking for an out-of-scope entity is an authorization error,
// not an empty result.
func (w *ReportWorkflow) List(ctx context.Context, user *models.User, filter models.ReportFilter) ([]models.Report, error) {
	if user == nil {
		return nil, &utils.AuthorizationError{Reason: "unknown caller"}
	}
	if !user.Role.Supervisory() {
		for _, code := range filter.EntityCodes {
			if !user.CanAccessEntity(code) {
				return nil, &utils.AuthorizationError{
					Reason: fmt.Sprintf("user %s has no access to entity %s", user.ID, code),
				}
			}
		}
		if len(filter.EntityCodes) == 0 && !user.CanAccessEntity("") {
			filter.EntityCodes = user.EntityAccess
			// No scope means no visible reports, never an unfiltered view.
			if len(filter.EntityCodes) == 0 {
				return []models.Report{}, nil
			}
		}
	}
	return w.reports.ListReports(ctx, filter)
}

// notifyPipelineFinished composes once per recipient class (submitter,
// supervisor pool) and fans the result out. Compose failures degrade to the
// fixed generic message; they never suppress notification.
func (w *ReportWorkflow) notifyPipelineFinished(ctx context.Context, report *models.Report) {
	submitterEvent := models.EventKindSubmitted
	if report.Validation != nil && !report.Validation.IsValid {
		submitterEvent = models.EventKindValidationFailed
	}

	baseCtx := map[string]any{
		"report_id":   report.ID,
		"file_name":   report.FileName,
		"entity_name": report.EntityName,
		"report_type": string(report.ReportKind),
	}
	if report.Risk != nil {
		baseCtx["risk_score"] = report.Risk.Score
		baseCtx["urgency"] = string(report.Risk.Urgency)
	}

	now := time.Now().UTC()
	w.deliver(ctx, report.SubmittedBy, report, submitterEvent, baseCtx, submissionExpiry(now))

	supervisors, err := w.users.ListSupervisors(ctx)
	if err != nil {
		config.LogError(w.logger, "reportWorkflow.go", "notifyPipelineFinished", "ListSupervisors", report.ID, err)
		return
	}
	if len(supervisors) == 0 {
		return
	}

	supCtx := map[string]any{"audience": "supervisor"}
	for k, v := range baseCtx {
		supCtx[k] = v
	}
	content := w.compose(ctx, models.EventKindSubmitted, supCtx)
	expiry := submissionExpiry(now)
	for _, supervisor := range supervisors {
		w.publishMessage(ctx, supervisor.ID, report, models.EventKindSubmitted, content, supCtx, expiry)
	}
}

// deliver composes and publishes one message for one recipient.
func (w *ReportWorkflow) deliver(ctx context.Context, userId string, report *models.Report, kind models.EventKind, eventCtx map[string]any, expiresAt time.Time) {
	content := w.compose(ctx, kind, eventCtx)
	w.publishMessage(ctx, userId, report, kind, content, eventCtx, expiresAt)
}

func (w *ReportWorkflow) compose(ctx context.Context, kind models.EventKind, eventCtx map[string]any) *models.MessageContent {
	content, err := runStage(ctx, w.stageTimeout, func(stageCtx context.Context) (*models.MessageContent, error) {
		return w.composer.Compose(stageCtx, kind, eventCtx)
	})
	if err != nil {
		w.recordCapabilityFailure(ctx, stringField(eventCtx, "report_id"), "compose", err)
		return FallbackMessage(kind)
	}
	return content
}

func (w *ReportWorkflow) publishMessage(ctx context.Context, userId string, report *models.Report, kind models.EventKind, content *models.MessageContent, eventCtx map[string]any, expiresAt time.Time) {
	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserId:    userId,
		ReportId:  report.ID,
		Kind:      kind,
		Title:     content.Title,
		Message:   content.Body,
		Context:   eventCtx,
		ExpiresAt: &expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.notifications.SaveNotification(ctx, notification); err != nil {
		config.LogError(w.logger, "reportWorkflow.go", "publishMessage", "SaveNotification", userId, err)
	}
	w.publisher.Publish(notification)
}

func (w *ReportWorkflow) recordCapabilityFailure(ctx context.Context, reportId string, stage string, cause error) {
	failure := &utils.CapabilityFailure{Stage: stage, Err: cause}
	config.LogError(w.logger, "reportWorkflow.go", "Run", stage, reportId, failure)
	w.audit.Record(ctx, &models.AuditRecord{
		ReportId: reportId,
		Stage:    stage,
		Outcome:  "capability_failure",
		Detail:   failure.Error(),
	})
}

// runStage bounds one capability call. On timeout the pipeline proceeds with
// the fallback value; the abandoned call finishes (or not) on its own, its
// result discarded. No retries here: capabilities own their retry policy.
func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(stageCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case result := <-done:
		return result.value, result.err
	case <-stageCtx.Done():
		var zero T
		return zero, stageCtx.Err()
	}
}

func decisionExpiry(now time.Time) time.Time {
	return now.Add(30 * 24 * time.Hour)
}

// Submission alerts age out faster than decisions.
func submissionExpiry(now time.Time) time.Time {
	return now.Add(7 * 24 * time.Hour)
}

func stringField(eventCtx map[string]any, key string) string {
	if v, ok := eventCtx[key].(string); ok {
		return v
	}
	return ""
}
