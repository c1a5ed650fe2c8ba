package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/agents"
	"bitbucket.org/consolelogwin/veritas_backend/models"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
)

// NOTE: These tests are intentionally DB-free. They validate the pipeline
// semantics against in-memory fakes that mirror the store's transition
// guarantees:
// - every stage failure degrades to a fallback outcome, never a stall
// - the status machine only moves forward, concurrent runs lose with a conflict
// - review decisions are gated on role and on the analyzed status

type fakeStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: map[string]*models.Report{}}
}

func (s *fakeStore) CreateReport(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *report
	s.reports[report.ID] = &clone
	return nil
}

func (s *fakeStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	clone := *report
	return &clone, nil
}

func (s *fakeStore) ListReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for _, report := range s.reports {
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		if len(filter.EntityCodes) > 0 {
			match := false
			for _, code := range filter.EntityCodes {
				if report.EntityCode == code {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *report)
	}
	return out, nil
}

func (s *fakeStore) AdvanceReport(ctx context.Context, id string, from models.ReportStatus, to models.ReportStatus, apply func(*models.Report) error) (*models.Report, error) {
	if !models.CanTransition(from, to) {
		return nil, &utils.StateError{Action: string(to), Current: string(from), Reason: "illegal transition"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	if report.Status != from {
		return nil, &utils.ConflictError{ReportId: id, Expected: string(from)}
	}
	clone := *report
	if apply != nil {
		if err := apply(&clone); err != nil {
			return nil, err
		}
	}
	clone.Status = to
	if err := clone.CheckOutcomeConsistency(); err != nil {
		return nil, err
	}
	s.reports[id] = &clone
	result := clone
	return &result, nil
}

type fakeNotificationStore struct {
	mu    sync.Mutex
	saved []*models.Notification
}

func (s *fakeNotificationStore) SaveNotification(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, notification)
	return nil
}

type fakeDirectory struct {
	supervisors []models.User
}

func (d *fakeDirectory) GetUser(ctx context.Context, id string) (*models.User, error) {
	return nil, utils.ErrorRecordNotFound
}

func (d *fakeDirectory) ListSupervisors(ctx context.Context) ([]models.User, error) {
	return d.supervisors, nil
}

func (d *fakeDirectory) EntityName(ctx context.Context, code string) string {
	if code == "MBANK001" {
		return "mBank S.A."
	}
	return "Entity " + code
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.Notification
}

func (p *fakePublisher) Publish(notification *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, notification)
}

func (p *fakePublisher) forUser(userId string) []*models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.Notification
	for _, n := range p.published {
		if n.UserId == userId {
			out = append(out, n)
		}
	}
	return out
}

// Capability fakes. A nil err returns the canned outcome.

type fakeValidator struct {
	outcome *models.ValidationOutcome
	err     error
}

func (v *fakeValidator) Validate(ctx context.Context, doc agents.Document) (*models.ValidationOutcome, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.outcome, nil
}

type fakeAssessor struct {
	outcome *models.RiskOutcome
	err     error
}

func (a *fakeAssessor) Assess(ctx context.Context, doc agents.Document, validation *models.ValidationOutcome) (*models.RiskOutcome, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.outcome, nil
}

type fakeComposer struct {
	err error
}

func (c *fakeComposer) Compose(ctx context.Context, kind models.EventKind, eventCtx map[string]any) (*models.MessageContent, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &models.MessageContent{Title: "title:" + string(kind), Body: "body:" + string(kind)}, nil
}

type testEnv struct {
	store     *fakeStore
	inbox     *fakeNotificationStore
	directory *fakeDirectory
	publisher *fakePublisher
	validator *fakeValidator
	assessor  *fakeAssessor
	composer  *fakeComposer
	flow      *ReportWorkflow
}

func newTestEnv(strict bool) *testEnv {
	env := &testEnv{
		store:     newFakeStore(),
		inbox:     &fakeNotificationStore{},
		directory: &fakeDirectory{supervisors: []models.User{{ID: "sup-1", Role: models.UserRoleSupervisor}}},
		publisher: &fakePublisher{},
		validator: &fakeValidator{outcome: &models.ValidationOutcome{IsValid: true, Confidence: 0.95}},
		assessor: &fakeAssessor{outcome: &models.RiskOutcome{
			Category: models.RiskCategoryLiquidity, Score: 4.5, Confidence: 0.85, Justification: "baseline",
		}},
		composer: &fakeComposer{},
	}
	env.flow = NewReportWorkflow(Deps{
		Reports:        env.store,
		Notifications:  env.inbox,
		Users:          env.directory,
		Entities:       env.directory,
		Validator:      env.validator,
		Assessor:       env.assessor,
		Composer:       env.composer,
		Publisher:      env.publisher,
		Audit:          NopAuditSink{},
		StageTimeout:   5 * time.Second,
		StrictFailures: strict,
		Background:     false,
	})
	return env
}

func submitterUser() *models.User {
	return &models.User{ID: "user-1", Role: models.UserRoleSubmitter, EntityAccess: []string{"MBANK001"}}
}

func supervisorUser() *models.User {
	return &models.User{ID: "sup-1", Role: models.UserRoleSupervisor, EntityAccess: []string{"*"}}
}

func TestPipeline_HappyPath_EndsAnalyzed(t *testing.T) {
	env := newTestEnv(false)

	report, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.Status != models.ReportStatusAnalyzed {
		t.Fatalf("status = %s, want analyzed", report.Status)
	}
	if report.EntityName != "mBank S.A." {
		t.Fatalf("entity name = %q", report.EntityName)
	}
	if report.Validation == nil || !report.Validation.IsValid {
		t.Fatalf("validation = %+v, want valid", report.Validation)
	}
	if report.Risk == nil || report.Risk.Score != 4.5 {
		t.Fatalf("risk = %+v, want score 4.5", report.Risk)
	}
	if report.Risk.Urgency != models.UrgencyRoutine {
		t.Fatalf("urgency = %s, want routine for score 4.5", report.Risk.Urgency)
	}

	// Submitter gets one message, every supervisor one.
	if got := env.publisher.forUser("user-1"); len(got) != 1 || got[0].Kind != models.EventKindSubmitted {
		t.Fatalf("submitter messages = %+v", got)
	}
	if got := env.publisher.forUser("sup-1"); len(got) != 1 {
		t.Fatalf("supervisor messages = %d, want 1", len(got))
	}
}

func TestPipeline_BothCapabilitiesFail_DegradesButCompletes(t *testing.T) {
	env := newTestEnv(false)
	env.validator.err = errors.New("validator unreachable")
	env.assessor.err = errors.New("assessor unreachable")

	report, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.Status != models.ReportStatusAnalyzed {
		t.Fatalf("status = %s, want analyzed despite capability failures", report.Status)
	}
	if report.Validation.IsValid {
		t.Fatal("fallback validation must be invalid")
	}
	if report.Validation.Confidence != 0.5 {
		t.Fatalf("fallback validation confidence = %v, want 0.5", report.Validation.Confidence)
	}
	if len(report.Validation.Errors) != 1 {
		t.Fatalf("fallback validation errors = %d, want 1", len(report.Validation.Errors))
	}
	if report.Risk.Score != 5.0 || report.Risk.Category != models.RiskCategoryUnknown {
		t.Fatalf("fallback risk = %+v", report.Risk)
	}
	if report.Risk.Confidence != 0.3 {
		t.Fatalf("fallback risk confidence = %v, want 0.3", report.Risk.Confidence)
	}
	if report.Risk.Urgency != models.UrgencyUrgent {
		t.Fatalf("fallback risk urgency = %s, want urgent", report.Risk.Urgency)
	}

	// Invalid validation flips the submitter's event kind.
	got := env.publisher.forUser("user-1")
	if len(got) != 1 || got[0].Kind != models.EventKindValidationFailed {
		t.Fatalf("submitter messages = %+v, want one validation_failed", got)
	}
}

func TestPipeline_StrictMode_StopsAtValidationFailed(t *testing.T) {
	env := newTestEnv(true)
	env.validator.err = errors.New("validator unreachable")

	report, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindAML, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.Status != models.ReportStatusValidationFailed {
		t.Fatalf("status = %s, want validation_failed in strict mode", report.Status)
	}
	if report.Validation == nil || report.Validation.Confidence != 0.5 {
		t.Fatalf("fallback outcome missing: %+v", report.Validation)
	}
	if report.Risk != nil {
		t.Fatal("risk must not be attached when validation fails hard")
	}
}

func TestPipeline_ComposeFailure_StillNotifies(t *testing.T) {
	env := newTestEnv(false)
	env.composer.err = errors.New("composer unreachable")

	_, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindCapital, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := env.publisher.forUser("user-1")
	if len(got) != 1 {
		t.Fatalf("submitter messages = %d, want 1", len(got))
	}
	fallback := FallbackMessage(models.EventKindSubmitted)
	if got[0].Title != fallback.Title || got[0].Message != fallback.Body {
		t.Fatalf("message = %q/%q, want generic fallback", got[0].Title, got[0].Message)
	}
}

func TestPipeline_SecondRun_Conflicts(t *testing.T) {
	env := newTestEnv(false)

	report, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err = env.flow.Run(context.Background(), report.ID, agents.Document{FileName: "q1.xlsx", Kind: models.ReportKindLiquidity})
	var conflict *utils.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second Run error = %v, want ConflictError", err)
	}
}

func TestSubmit_UnknownKind_IsInputError(t *testing.T) {
	env := newTestEnv(false)
	_, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", "derivatives", "q1.xlsx", nil)
	var inputErr *utils.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("error = %v, want InputError", err)
	}
}

func TestSubmit_OutOfScopeEntity_IsDenied(t *testing.T) {
	env := newTestEnv(false)
	_, err := env.flow.Submit(context.Background(), submitterUser(), "PKOBP001", models.ReportKindLiquidity, "q1.xlsx", nil)
	var authErr *utils.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthorizationError", err)
	}
}

func TestApprove_AnalyzedReport_NotifiesSubmitter(t *testing.T) {
	env := newTestEnv(false)
	report, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	approved, err := env.flow.Approve(context.Background(), supervisorUser(), report.ID, "looks fine")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.ReportStatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
	if approved.ReviewedBy != "sup-1" || approved.ReviewedAt == nil {
		t.Fatalf("review fields not set: by=%q at=%v", approved.ReviewedBy, approved.ReviewedAt)
	}

	got := env.publisher.forUser("user-1")
	last := got[len(got)-1]
	if last.Kind != models.EventKindApproved {
		t.Fatalf("last submitter message kind = %s, want approved", last.Kind)
	}
}

func TestNotificationExpiry_SubmissionShorterThanDecision(t *testing.T) {
	env := newTestEnv(false)
	before := time.Now()

	report, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := env.flow.Approve(context.Background(), supervisorUser(), report.ID, "looks fine"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	got := env.publisher.forUser("user-1")
	if len(got) != 2 {
		t.Fatalf("submitter messages = %d, want 2", len(got))
	}
	pipeline, decision := got[0], got[1]
	if pipeline.ExpiresAt == nil || decision.ExpiresAt == nil {
		t.Fatal("expiry must be set on every message")
	}
	// Pipeline-completion notices keep the week-long window, decisions a month.
	if max := before.Add(8 * 24 * time.Hour); pipeline.ExpiresAt.After(max) {
		t.Fatalf("pipeline notice expires %v, want within 7 days", pipeline.ExpiresAt)
	}
	if min := before.Add(29 * 24 * time.Hour); decision.ExpiresAt.Before(min) {
		t.Fatalf("decision notice expires %v, want 30 days out", decision.ExpiresAt)
	}
}

func TestApprove_BySubmitter_IsDenied(t *testing.T) {
	env := newTestEnv(false)
	report, _ := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))

	_, err := env.flow.Approve(context.Background(), submitterUser(), report.ID, "")
	var authErr *utils.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthorizationError", err)
	}
}

func TestApprove_Twice_SecondIsStateError(t *testing.T) {
	env := newTestEnv(false)
	report, _ := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))

	if _, err := env.flow.Approve(context.Background(), supervisorUser(), report.ID, ""); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	_, err := env.flow.Approve(context.Background(), supervisorUser(), report.ID, "")
	var stateErr *utils.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("second Approve error = %v, want StateError", err)
	}
}

func TestReject_RequiresSubstantiveComment(t *testing.T) {
	env := newTestEnv(false)
	report, _ := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))

	_, err := env.flow.Reject(context.Background(), supervisorUser(), report.ID, "  too short ")
	var inputErr *utils.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("error = %v, want InputError for short comment", err)
	}

	rejected, err := env.flow.Reject(context.Background(), supervisorUser(), report.ID, "missing liquidity buffer disclosures in section 4")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != models.ReportStatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if !strings.Contains(rejected.DecisionComment, "liquidity buffer") {
		t.Fatalf("comment not stored: %q", rejected.DecisionComment)
	}
}

func TestList_SubmitterIsScopedToOwnEntities(t *testing.T) {
	env := newTestEnv(false)
	_, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	other := &models.User{ID: "user-2", Role: models.UserRoleSubmitter, EntityAccess: []string{"PKOBP001"}}
	_, err = env.flow.Submit(context.Background(), other, "PKOBP001", models.ReportKindAML, "a.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	reports, err := env.flow.List(context.Background(), submitterUser(), models.ReportFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 1 || reports[0].EntityCode != "MBANK001" {
		t.Fatalf("reports = %+v, want only MBANK001", reports)
	}

	// Asking for someone else's entity is a denial, not an empty list.
	_, err = env.flow.List(context.Background(), submitterUser(), models.ReportFilter{EntityCodes: []string{"PKOBP001"}})
	var authErr *utils.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthorizationError", err)
	}

	all, err := env.flow.List(context.Background(), supervisorUser(), models.ReportFilter{})
	if err != nil {
		t.Fatalf("List as supervisor: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("supervisor sees %d reports, want 2", len(all))
	}
}

func TestList_EmptyScopeSubmitterSeesNothing(t *testing.T) {
	env := newTestEnv(false)
	_, err := env.flow.Submit(context.Background(), submitterUser(), "MBANK001", models.ReportKindLiquidity, "q1.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	other := &models.User{ID: "user-2", Role: models.UserRoleSubmitter, EntityAccess: []string{"PKOBP001"}}
	_, err = env.flow.Submit(context.Background(), other, "PKOBP001", models.ReportKindAML, "a.xlsx", []byte("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	for _, scope := range [][]string{nil, {}} {
		unscoped := &models.User{ID: "user-3", Role: models.UserRoleSubmitter, EntityAccess: scope}
		reports, err := env.flow.List(context.Background(), unscoped, models.ReportFilter{})
		if err != nil {
			t.Fatalf("List with scope %v: %v", scope, err)
		}
		if len(reports) != 0 {
			t.Fatalf("submitter with scope %v sees %d reports, want none", scope, len(reports))
		}
	}
}

func TestRunStage_TimeoutReturnsError(t *testing.T) {
	started := make(chan struct{})
	_, err := runStage(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	})
	<-started
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}
