package prompt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"promptforge/apps/backend/features/activity"
	"promptforge/apps/backend/features/achievement"
	"promptforge/apps/backend/internal/admission"
	"promptforge/apps/backend/internal/cache"
)

var ErrTemplateNotFound = errors.New("template not found")

// RateLimitedError rejects a request that exceeded its tier's window.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// InsufficientCreditsError rejects a request the balance cannot cover.
type InsufficientCreditsError struct {
	Balance int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d", e.Balance)
}

var ErrProfileMissing = errors.New("no credit profile provisioned for user")

// PostTask is a side effect deferred until after the primary response is
// written. Failures are logged, never surfaced to the client.
type PostTask func(ctx context.Context)

type Enqueuer interface {
	EnqueueBestEffort(ctx context.Context, jobType string, payload any)
}

type AdmissionGate interface {
	Admit(ctx context.Context, userID, identifier, tier string, cost int) (admission.Admission, error)
}

type Service struct {
	repo      Repository
	gate      AdmissionGate
	enqueuer  Enqueuer
	templates *cache.Cache[*Template]
	cost      int
}

func NewService(repo Repository, gate AdmissionGate, enqueuer Enqueuer, templates *cache.Cache[*Template], cost int) *Service {
	return &Service{repo: repo, gate: gate, enqueuer: enqueuer, templates: templates, cost: cost}
}

// Generate runs the full request path: admission gate, template render, and
// the post-commit task list. Tasks are returned rather than executed so the
// caller can run them after the response has been committed.
func (s *Service) Generate(ctx context.Context, req GenerateRequest, identifier, tier string) (*GenerateResult, []PostTask, error) {
	adm, err := s.gate.Admit(ctx, req.UserID, identifier, tier, s.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("admission: %w", err)
	}
	switch adm.Outcome {
	case admission.RateLimited:
		return nil, nil, &RateLimitedError{ResetAt: adm.ResetAt}
	case admission.InsufficientCredits:
		return nil, nil, &InsufficientCreditsError{Balance: adm.Balance}
	case admission.ProfileMissing:
		return nil, nil, ErrProfileMissing
	}

	tpl, err := s.template(ctx, req.TemplateID)
	if err != nil {
		return nil, nil, err
	}

	rendered, err := render(tpl, req.Vars)
	if err != nil {
		return nil, nil, fmt.Errorf("render template %s: %w", req.TemplateID, err)
	}

	// Side effects ride behind the response: enqueue failures must never
	// fail a generation that already spent credits.
	eventID := uuid.New().String()
	tasks := []PostTask{
		func(ctx context.Context) {
			s.enqueuer.EnqueueBestEffort(ctx, activity.JobType, activity.LogPayload{
				EventID: eventID,
				UserID:  req.UserID,
				Action:  "prompt_generated",
			})
		},
		func(ctx context.Context) {
			s.enqueuer.EnqueueBestEffort(ctx, achievement.JobType, achievement.CheckPayload{
				UserID: req.UserID,
			})
		},
	}

	return &GenerateResult{Rendered: rendered, Balance: adm.Balance}, tasks, nil
}

// RunPostTasks executes the deferred side effects of a committed response.
func RunPostTasks(ctx context.Context, tasks []PostTask) {
	for _, task := range tasks {
		task(ctx)
	}
}

func (s *Service) template(ctx context.Context, id string) (*Template, error) {
	if t, ok := s.templates.Get(id); ok {
		return t, nil
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	s.templates.Set(id, t)
	slog.DebugContext(ctx, "template cached", "template_id", id)
	return t, nil
}

func render(t *Template, vars map[string]string) (string, error) {
	parsed, err := template.New(t.ID).Option("missingkey=zero").Parse(t.Body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := parsed.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}
