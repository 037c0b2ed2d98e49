package e

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrMissingField      = errors.New("missing field")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyClaimed    = errors.New("already claimed")
	ErrStaleState        = errors.New("stale state")
	ErrTimeout           = errors.New("timeout")
	ErrCanceled          = errors.New("context canceled")
	ErrUnavailable       = errors.New("unavailable")
	ErrInvalidSpeed      = errors.New("invalid speed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInternal          = errors.New("internal error")
	ErrWebHookEmpty      = errors.New("webhook queue is empty")
)

// Kind is the stable machine-readable name of an error class.
type Kind string

const (
	KindInvalidCoordinate Kind = "invalid_coordinate"
	KindMissingField      Kind = "missing_field"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindAlreadyClaimed    Kind = "already_claimed"
	KindStaleState        Kind = "stale_state"
	KindTimeout           Kind = "timeout"
	KindUnavailable       Kind = "unavailable"
	KindInvalidInput      Kind = "invalid_input"
	KindUnauthenticated   Kind = "unauthenticated"
	KindInternal          Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrAlreadyClaimed, KindAlreadyClaimed},
	{ErrInvalidCoordinate, KindInvalidCoordinate},
	{ErrMissingField, KindMissingField},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrStaleState, KindStaleState},
	{ErrConflict, KindStaleState},
	{ErrTimeout, KindTimeout},
	{ErrCanceled, KindTimeout},
	{ErrUnavailable, KindUnavailable},
	{ErrInvalidSpeed, KindInvalidInput},
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthenticated, KindUnauthenticated},
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// WrapError maps driver and context errors onto the sentinels above.
func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case "23503", "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		case "57P01", "57P02", "57P03", "08000", "08003", "08006":
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrUnavailable)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%s: %w", op, ErrTimeout)
		}
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrInternal)
}
