package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/werent/review-platform/internal/config"
	"github.com/werent/review-platform/internal/delivery/http/middleware"
	"github.com/werent/review-platform/internal/delivery/http/request"
	"github.com/werent/review-platform/internal/delivery/http/response"
	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
	"github.com/werent/review-platform/internal/usecase/review"
)

const maxReviewMediaFiles = 5

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *review.Service
	cfg     *config.Config
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, cfg *config.Config, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		cfg:     cfg,
		logger:  log,
	}
}

// reviewResponse is the listing shape for a single review.
type reviewResponse struct {
	ID              uuid.UUID            `json:"id"`
	Rating          int                  `json:"rating"`
	Content         string               `json:"content"`
	HelpfulCount    int                  `json:"helpfulCount"`
	CreatedAt       time.Time            `json:"createdAt"`
	EditedAt        *time.Time           `json:"editedAt"`
	User            *domain.ReviewAuthor `json:"user"`
	UserMeasurement domain.Measurement   `json:"userMeasurement"`
	Fit             *domain.FitType      `json:"fit"`
	Media           []*domain.Media      `json:"media"`
}

func newReviewResponse(r *domain.Review) *reviewResponse {
	return &reviewResponse{
		ID:              r.ID,
		Rating:          r.Rating,
		Content:         r.Content,
		HelpfulCount:    r.HelpfulCount,
		CreatedAt:       r.CreatedAt,
		EditedAt:        r.EditedAt,
		User:            r.Author,
		UserMeasurement: r.UserMeasurement(),
		Fit:             r.Fit,
		Media:           r.Media,
	}
}

// Create handles POST /api/v1/reviews/products/{productId}. The request is
// multipart: rating and content are mandatory, measurements and fit optional,
// plus up to five media files tagged by content type.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	if err := r.ParseMultipartForm(h.cfg.Media.MaxVideoBytes + h.cfg.Media.MaxImageBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid rating")
		return
	}

	rev := &domain.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Content:   r.FormValue("content"),
	}

	for field, target := range map[string]**int{
		"waist": &rev.Waist,
		"bust":  &rev.Bust,
		"hips":  &rev.Hips,
	} {
		if value := r.FormValue(field); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "Invalid "+field)
				return
			}
			*target = &n
		}
	}

	if value := r.FormValue("fit"); value != "" {
		fit := domain.FitType(value)
		if !fit.Valid() {
			response.Error(w, http.StatusBadRequest, "Invalid fit")
			return
		}
		rev.Fit = &fit
	}

	files := r.MultipartForm.File["media"]
	if len(files) > maxReviewMediaFiles {
		response.Error(w, http.StatusBadRequest, "Too many media files")
		return
	}

	blobs := make([]domain.MediaBlob, 0, len(files))
	for _, fh := range files {
		blob, err := request.MediaBlobFromFile(fh, h.cfg.Media.MaxImageBytes, h.cfg.Media.MaxVideoBytes)
		if err != nil {
			h.handleError(w, err)
			return
		}
		blobs = append(blobs, *blob)
	}

	created, err := h.service.Create(r.Context(), rev, blobs)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, newReviewResponse(created))
}

// GetByProductID handles GET /api/v1/products/{id}/reviews
func (h *ReviewHandler) GetByProductID(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	q := request.ParseReviewQuery(r)

	reviews, total, err := h.service.ListByProduct(r.Context(), productID, q)
	if err != nil {
		h.handleError(w, err)
		return
	}

	items := make([]*reviewResponse, len(reviews))
	for i, rev := range reviews {
		items[i] = newReviewResponse(rev)
	}

	response.Paginated(w, items, q.Page, q.Limit, total)
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// ToggleHelpful handles POST /api/v1/reviews/{id}/helpful
func (h *ReviewHandler) ToggleHelpful(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	result, err := h.service.ToggleHelpful(r.Context(), id, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, result)
}

// DeleteHelpful handles DELETE /api/v1/reviews/{id}/helpful
func (h *ReviewHandler) DeleteHelpful(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	result, err := h.service.DeleteHelpful(r.Context(), id, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetHelpfulCount handles GET /api/v1/reviews/{id}/helpful
func (h *ReviewHandler) GetHelpfulCount(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	count, err := h.service.HelpfulCount(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]int{"helpfulCount": count})
}

// handleError maps service errors to HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review or product not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrUnauthenticated):
		response.Error(w, http.StatusUnauthorized, "Unauthenticated")
	case errors.Is(err, domain.ErrUpstream):
		response.Error(w, http.StatusBadGateway, "Media upload failed")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
