package requests

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"reliefbridge/internal/api/handlers/http/respond"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/middleware"
	"reliefbridge/pkg/e"

	"github.com/go-chi/chi/v5"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Coordinator interface {
	CreateRequest(ctx context.Context, userID string, in domain.CreateHelpRequest) (*domain.HelpRequest, error)
	GetRequest(ctx context.Context, userID, id string) (*domain.HelpRequest, error)
	ListRequests(ctx context.Context, userID string, f domain.ListFilter) ([]*domain.HelpRequest, error)
	ClaimRequest(ctx context.Context, userID, id string) (*domain.HelpRequest, error)
	CompleteRequest(ctx context.Context, userID, id string) (*domain.HelpRequest, error)
	CancelRequest(ctx context.Context, userID, id, reason string) (*domain.HelpRequest, error)
	UnclaimRequest(ctx context.Context, userID, id, reason string) (*domain.HelpRequest, error)
	ComputeNavigation(ctx context.Context, userID, id string, from domain.Coordinate) (*domain.Navigation, error)
	TrackRequest(ctx context.Context, userID, id string) (*domain.Navigation, error)
	MatchVolunteers(ctx context.Context, userID, id string, limit int) ([]domain.VolunteerMatch, error)
	UpdateVolunteerLocation(ctx context.Context, userID string, loc domain.Coordinate) (*domain.VolunteerLocation, error)
	Dashboard(ctx context.Context, userID string) (*domain.Dashboard, error)
}

type Handler struct {
	logger      *slog.Logger
	Coordinator Coordinator
}

func NewHandler(logger *slog.Logger, coordinator Coordinator) *Handler {
	return &Handler{
		logger:      logger,
		Coordinator: coordinator,
	}
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	in, err := middleware.DecodeJSON[domain.CreateHelpRequest](w, r, false)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	req, err := h.Coordinator.CreateRequest(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	l.Info("help request created", slog.String("id", req.ID), slog.String("category", req.Category))
	w.Header().Set("Location", "/api/v1/requests/"+req.ID)
	respond.JSON(w, l, http.StatusCreated, req)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)
	q := r.URL.Query()

	f := domain.ListFilter{
		Status: domain.RequestStatus(q.Get("status")),
		Mine:   q.Get("mine") == "true" || q.Get("mine") == "1",
		Limit:  parseInt(q.Get("limit"), domain.DefaultListLimit),
		Offset: parseInt(q.Get("offset"), 0),
	}
	if f.Limit > domain.MaxListLimit {
		l.Warn("limit capped", slog.Int("requested", f.Limit), slog.Int("limit", domain.MaxListLimit))
		f.Limit = domain.MaxListLimit
	}

	out, err := h.Coordinator.ListRequests(r.Context(), middleware.UserID(r.Context()), f)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	respond.JSON(w, l, http.StatusOK, domain.ListHelpRequestsResponse{
		Requests: out,
		Limit:    f.Limit,
		Offset:   f.Offset,
	})
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	req, err := h.Coordinator.GetRequest(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, req)
}

func (h *Handler) ClaimRequest(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	req, err := h.Coordinator.ClaimRequest(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, req)
}

func (h *Handler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	req, err := h.Coordinator.CompleteRequest(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, req)
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	body, err := middleware.DecodeJSON[domain.CancelRequest](w, r, true)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	req, err := h.Coordinator.CancelRequest(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, req)
}

func (h *Handler) UnclaimRequest(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	body, err := middleware.DecodeJSON[domain.UnclaimRequest](w, r, true)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	req, err := h.Coordinator.UnclaimRequest(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, req)
}

// Navigation computes distance and ETA from ?lat=&lng= to the request.
func (h *Handler) Navigation(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	from, err := parseCoordinate(r)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	nav, err := h.Coordinator.ComputeNavigation(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), from)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, nav)
}

func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	nav, err := h.Coordinator.TrackRequest(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, nav)
}

func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	limit := parseInt(r.URL.Query().Get("limit"), 0)
	matches, err := h.Coordinator.MatchVolunteers(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), limit)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, map[string]any{"matches": matches})
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	in, err := middleware.DecodeJSON[domain.UpdateLocationRequest](w, r, false)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	loc, err := h.Coordinator.UpdateVolunteerLocation(r.Context(), middleware.UserID(r.Context()), domain.Coordinate{Lat: *in.Lat, Lng: *in.Lng})
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, loc)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	d, err := h.Coordinator.Dashboard(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	respond.JSON(w, l, http.StatusOK, d)
}

func parseCoordinate(r *http.Request) (domain.Coordinate, error) {
	q := r.URL.Query()
	rawLat, rawLng := q.Get("lat"), q.Get("lng")
	if rawLat == "" || rawLng == "" {
		return domain.Coordinate{}, fmt.Errorf("lat and lng query parameters: %w", e.ErrMissingField)
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("lat=%q: %w", rawLat, e.ErrInvalidCoordinate)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("lng=%q: %w", rawLng, e.ErrInvalidCoordinate)
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, nil
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
