package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/werent/review-platform/internal/config"
	"github.com/werent/review-platform/internal/delivery/http/request"
	"github.com/werent/review-platform/internal/delivery/http/response"
	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
	"github.com/werent/review-platform/internal/usecase/catalog"
)

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	service *catalog.Service
	cfg     *config.Config
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *catalog.Service, cfg *config.Config, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		cfg:     cfg,
		logger:  log,
	}
}

// Create handles POST /api/v1/products. Multipart: name is mandatory,
// description, price and sizes optional, plus an optional product image.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.Media.MaxImageBytes * 2); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	product := &domain.Product{
		Name:  r.FormValue("name"),
		Sizes: pq.StringArray{},
	}

	if value := r.FormValue("description"); value != "" {
		product.Description = &value
	}

	if value := r.FormValue("price"); value != "" {
		price, err := strconv.ParseFloat(value, 64)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid price")
			return
		}
		product.Price = price
	}

	if value := r.FormValue("sizes"); value != "" {
		for _, size := range strings.Split(value, ",") {
			if size = strings.TrimSpace(size); size != "" {
				product.Sizes = append(product.Sizes, size)
			}
		}
	}

	var image *domain.MediaBlob
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		blob, err := request.MediaBlobFromFile(files[0], h.cfg.Media.MaxImageBytes, h.cfg.Media.MaxImageBytes)
		if err != nil {
			h.handleError(w, err)
			return
		}
		if blob.Category != domain.CategoryImage {
			response.Error(w, http.StatusBadRequest, "Only image files are allowed")
			return
		}
		image = blob
	}

	if err := h.service.Create(r.Context(), product, image); err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, product)
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := request.ParseProductQuery(r)

	products, total, err := h.service.List(r.Context(), q)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, products, q.Page, q.Limit, total)
}

// GetByID handles GET /api/v1/products/{id}
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, product)
}

// GetReviewSummary handles GET /api/v1/products/{id}/reviews/summary
func (h *ProductHandler) GetReviewSummary(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	summary, err := h.service.ReviewSummary(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// handleError maps service errors to HTTP responses
func (h *ProductHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrUpstream):
		response.Error(w, http.StatusBadGateway, "Image upload failed")
	default:
		h.logger.Error("Internal error in product handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
