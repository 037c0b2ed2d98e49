package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/obs"
	"reliefbridge/pkg/e"
)

// maxStaleRetries bounds transparent retries of a compare-and-set that lost to a
// benign concurrent transition.
const maxStaleRetries = 1

// Guard is an extra precondition evaluated against the exact snapshot being
// replaced, so it cannot be invalidated between check and write.
type Guard func(r *domain.HelpRequest) error

// ClaimCoordinator guarantees at most one volunteer wins pending -> claimed and
// that only the assignee completes a claim.
type ClaimCoordinator struct {
	store  *RequestStore
	logger *slog.Logger
}

func NewClaimCoordinator(store *RequestStore, logger *slog.Logger) *ClaimCoordinator {
	return &ClaimCoordinator{store: store, logger: logger}
}

func (c *ClaimCoordinator) Claim(ctx context.Context, requestID, volunteerID, volunteerName string) (*domain.HelpRequest, error) {
	const op = "claims.Claim"

	if volunteerID == "" {
		return nil, fmt.Errorf("%s: volunteer_id: %w", op, e.ErrMissingField)
	}
	attempt := domain.ClaimAttempt{RequestID: requestID, ActorID: volunteerID, AttemptedAt: time.Now().UTC()}

	setVolunteer := func(r *domain.HelpRequest, now time.Time) error {
		id, name := volunteerID, volunteerName
		r.VolunteerID = &id
		r.VolunteerName = &name
		r.ClaimedAt = &now
		return nil
	}

	for try := 0; ; try++ {
		r, err := c.store.Transition(ctx, requestID, domain.StatusPending, domain.StatusClaimed, setVolunteer)
		if err == nil {
			c.logger.Info("request claimed",
				slog.String("request_id", requestID),
				slog.String("volunteer_id", volunteerID),
			)
			return r, nil
		}

		var stale *StaleStateError
		if !errors.As(err, &stale) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		switch stale.Current.Status {
		case domain.StatusClaimed:
			obs.RecordClaimConflict()
			winner := ""
			if stale.Current.VolunteerID != nil {
				winner = *stale.Current.VolunteerID
			}
			c.logger.Info("claim lost race",
				slog.String("request_id", attempt.RequestID),
				slog.String("volunteer_id", attempt.ActorID),
				slog.String("winner_id", winner),
				slog.Time("attempted_at", attempt.AttemptedAt),
			)
			return nil, fmt.Errorf("%s: request %s: %w", op, requestID, e.ErrAlreadyClaimed)
		case domain.StatusPending:
			if try < maxStaleRetries {
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			return nil, fmt.Errorf("%s: request %s is %s: %w", op, requestID, stale.Current.Status, e.ErrInvalidTransition)
		}
	}
}

// Complete closes a claim held by volunteerID.
func (c *ClaimCoordinator) Complete(ctx context.Context, requestID, volunteerID string) (*domain.HelpRequest, error) {
	return c.complete(ctx, requestID, volunteerID, func(r *domain.HelpRequest) error {
		if !r.AssignedTo(volunteerID) {
			return fmt.Errorf("request %s is claimed by another volunteer: %w", requestID, e.ErrForbidden)
		}
		return nil
	})
}

// CompleteAsCoordinator closes a claim regardless of who holds it.
func (c *ClaimCoordinator) CompleteAsCoordinator(ctx context.Context, requestID, actorID string) (*domain.HelpRequest, error) {
	return c.complete(ctx, requestID, actorID, nil)
}

func (c *ClaimCoordinator) complete(ctx context.Context, requestID, actorID string, guard Guard) (*domain.HelpRequest, error) {
	const op = "claims.Complete"

	for try := 0; ; try++ {
		r, err := c.store.Transition(ctx, requestID, domain.StatusClaimed, domain.StatusCompleted, func(r *domain.HelpRequest, now time.Time) error {
			if guard != nil {
				if err := guard(r); err != nil {
					return err
				}
			}
			r.CompletedAt = &now
			return nil
		})
		if err == nil {
			c.logger.Info("request completed",
				slog.String("request_id", requestID),
				slog.String("actor_id", actorID),
			)
			return r, nil
		}

		var stale *StaleStateError
		if !errors.As(err, &stale) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if stale.Current.Status == domain.StatusClaimed && try < maxStaleRetries {
			continue
		}
		if stale.Current.Status == domain.StatusClaimed {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: request %s is %s: %w", op, requestID, stale.Current.Status, e.ErrInvalidTransition)
	}
}

// Prior describes what a transition left behind: the status it came from and
// the volunteer whose claim it released, if any.
type Prior struct {
	From        domain.RequestStatus
	VolunteerID string
}

// Cancel moves a pending or claimed request to cancelled. A cancelled claim drops
// its volunteer, who is reported in Prior.
func (c *ClaimCoordinator) Cancel(ctx context.Context, requestID, actorID, reason string) (*domain.HelpRequest, Prior, error) {
	const op = "claims.Cancel"

	from := domain.StatusPending
	var volunteer string
	retries, learned := 0, false
	for {
		r, err := c.store.Transition(ctx, requestID, from, domain.StatusCancelled, func(r *domain.HelpRequest, now time.Time) error {
			volunteer = ""
			if r.VolunteerID != nil {
				volunteer = *r.VolunteerID
			}
			r.VolunteerID = nil
			r.VolunteerName = nil
			r.ClaimedAt = nil
			r.CancelledAt = &now
			return nil
		})
		if err == nil {
			c.logger.Info("request cancelled",
				slog.String("request_id", requestID),
				slog.String("actor_id", actorID),
				slog.String("from", string(from)),
				slog.String("volunteer_id", volunteer),
				slog.String("reason", reason),
			)
			return r, Prior{From: from, VolunteerID: volunteer}, nil
		}

		var stale *StaleStateError
		if !errors.As(err, &stale) {
			return nil, Prior{}, fmt.Errorf("%s: %w", op, err)
		}
		if stale.Current.Status.Terminal() {
			return nil, Prior{}, fmt.Errorf("%s: request %s is %s: %w", op, requestID, stale.Current.Status, e.ErrInvalidTransition)
		}
		// Learning the live status once is free; anything after that is a retry.
		switch {
		case stale.Current.Status != from && !learned:
			learned = true
		case retries < maxStaleRetries:
			retries++
		default:
			return nil, Prior{}, fmt.Errorf("%s: %w", op, err)
		}
		from = stale.Current.Status
	}
}

// Unclaim returns a claimed request to the pending pool. guard may restrict which
// claims are released (nil releases any).
func (c *ClaimCoordinator) Unclaim(ctx context.Context, requestID, reason string, guard Guard) (*domain.HelpRequest, Prior, error) {
	const op = "claims.Unclaim"

	var released string
	r, err := c.store.Transition(ctx, requestID, domain.StatusClaimed, domain.StatusPending, func(r *domain.HelpRequest, _ time.Time) error {
		if guard != nil {
			if err := guard(r); err != nil {
				return err
			}
		}
		released = ""
		if r.VolunteerID != nil {
			released = *r.VolunteerID
		}
		r.VolunteerID = nil
		r.VolunteerName = nil
		r.ClaimedAt = nil
		return nil
	})
	if err != nil {
		var stale *StaleStateError
		if errors.As(err, &stale) && stale.Current != nil && stale.Current.Status != domain.StatusClaimed {
			return nil, Prior{}, fmt.Errorf("%s: request %s is %s: %w", op, requestID, stale.Current.Status, e.ErrInvalidTransition)
		}
		return nil, Prior{}, fmt.Errorf("%s: %w", op, err)
	}

	c.logger.Info("request unclaimed",
		slog.String("request_id", requestID),
		slog.String("volunteer_id", released),
		slog.String("reason", reason),
	)
	return r, Prior{From: domain.StatusClaimed, VolunteerID: released}, nil
}
