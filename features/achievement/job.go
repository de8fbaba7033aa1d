package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"promptforge/apps/backend/features/queue"
)

// JobType is the registry key for the achievement evaluation handler.
const JobType = "achievement_check"

// ActivityCounter reports how many activity entries a user has accumulated.
type ActivityCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

// NewJobHandler returns the queue handler that evaluates achievement rules
// for one user. Safe to re-run: grants are keyed by (user, code).
func NewJobHandler(repo Repository, activities ActivityCounter) queue.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var p CheckPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode achievement_check payload: %w", err)
		}
		if p.UserID == "" {
			return fmt.Errorf("achievement_check payload missing userId")
		}

		count, err := activities.CountByUser(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("count activity: %w", err)
		}

		if count >= 1 {
			if err := grant(ctx, repo, p.UserID, CodeFirstPrompt); err != nil {
				return err
			}
		}
		if count >= prolificThreshold {
			if err := grant(ctx, repo, p.UserID, CodeProlificAuthor); err != nil {
				return err
			}
		}
		return nil
	}
}

func grant(ctx context.Context, repo Repository, userID, code string) error {
	awarded, err := repo.Grant(ctx, userID, code)
	if err != nil {
		return fmt.Errorf("grant %s: %w", code, err)
	}
	if awarded {
		slog.InfoContext(ctx, "achievement awarded", "user_id", userID, "code", code)
	}
	return nil
}
