package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Harshita0007/DropLater/internal/domain"
	"github.com/Harshita0007/DropLater/internal/repository"
	"github.com/Harshita0007/DropLater/internal/service"
)

const (
	defaultPage  = 1
	listPageSize = 20
)

type NoteService interface {
	Create(ctx context.Context, n *domain.Note) (*domain.Note, error)
	GetByID(ctx context.Context, id string) (*service.NoteDetails, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Note, int64, error)
	Replay(ctx context.Context, id string) error
}

type NoteHandler struct {
	service NoteService
}

func NewNoteHandler(service NoteService) (*NoteHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("note service is required")
	}
	return &NoteHandler{service: service}, nil
}

func RegisterNoteRoutes(router fiber.Router, service NoteService) error {
	h, err := NewNoteHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notes", h.CreateNote)
	v1.Get("/notes", h.ListNotes)
	v1.Get("/notes/:id", h.GetNote)
	v1.Post("/notes/:id/replay", h.ReplayNote)

	return nil
}

type createNoteRequest struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ReleaseAt   string `json:"releaseAt"`
	WebhookURL  string `json:"webhookUrl"`
	MaxAttempts *int   `json:"maxAttempts,omitempty"`
}

type noteResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	ReleaseAt    time.Time  `json:"releaseAt"`
	WebhookURL   string     `json:"webhookUrl"`
	Status       string     `json:"status"`
	AttemptCount int        `json:"attemptCount"`
	MaxAttempts  int        `json:"maxAttempts"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	NextRetryAt  *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	AttemptNumber int       `json:"attemptNumber"`
	StatusCode    int       `json:"statusCode"`
	OK            bool      `json:"ok"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type noteDetailsResponse struct {
	noteResponse
	Attempts []attemptResponse `json:"attempts"`
}

type listNotesResponse struct {
	Data []noteResponse `json:"data"`
	Meta listMeta       `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NoteHandler) CreateNote(c *fiber.Ctx) error {
	var req createNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	note, err := requestToDomainNote(req)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.Create(c.UserContext(), &note)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toNoteResponse(created))
}

func (h *NoteHandler) GetNote(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	details, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNoteDetailsResponse(details))
}

func (h *NoteHandler) ListNotes(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	notes, total, err := h.service.List(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]noteResponse, 0, len(notes))
	for i := range notes {
		responses = append(responses, toNoteResponse(&notes[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listNotesResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *NoteHandler) ReplayNote(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Replay(c.UserContext(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"noteId": id,
		"status": string(domain.StatusPending),
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: listPageSize,
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	return params, nil
}

func requestToDomainNote(req createNoteRequest) (domain.Note, error) {
	releaseAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ReleaseAt))
	if err != nil {
		return domain.Note{}, fmt.Errorf("%w: releaseAt must be RFC3339", domain.ErrValidation)
	}

	n := domain.Note{
		Title:      strings.TrimSpace(req.Title),
		Body:       strings.TrimSpace(req.Body),
		ReleaseAt:  releaseAt,
		WebhookURL: strings.TrimSpace(req.WebhookURL),
	}
	if req.MaxAttempts != nil {
		n.MaxAttempts = *req.MaxAttempts
	}

	return n, nil
}

func toNoteResponse(n *domain.Note) noteResponse {
	if n == nil {
		return noteResponse{}
	}

	return noteResponse{
		ID:           n.ID,
		Title:        n.Title,
		Body:         n.Body,
		ReleaseAt:    n.ReleaseAt,
		WebhookURL:   n.WebhookURL,
		Status:       string(n.Status),
		AttemptCount: n.AttemptCount,
		MaxAttempts:  n.MaxAttempts,
		DeliveredAt:  n.DeliveredAt,
		NextRetryAt:  n.NextRetryAt,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

func toNoteDetailsResponse(details *service.NoteDetails) noteDetailsResponse {
	if details == nil {
		return noteDetailsResponse{}
	}

	attempts := make([]attemptResponse, 0, len(details.Attempts))
	for _, attempt := range details.Attempts {
		attempts = append(attempts, attemptResponse{
			ID:            attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			StatusCode:    attempt.StatusCode,
			OK:            attempt.OK,
			Error:         attempt.Error,
			CreatedAt:     attempt.CreatedAt,
		})
	}

	return noteDetailsResponse{
		noteResponse: toNoteResponse(&details.Note),
		Attempts:     attempts,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
