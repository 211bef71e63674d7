package request

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/werent/review-platform/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecodeJSON decodes JSON request body into the provided struct with size limit
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	limitedReader := io.LimitReader(r.Body, maxRequestBodySize)

	if err := json.NewDecoder(limitedReader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// GetUUIDParam extracts a UUID parameter from the URL
func GetUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return uuid.Nil, fmt.Errorf("missing parameter: %s", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}

	return id, nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ParseReviewQuery normalizes review listing parameters into the canonical
// query. Legacy names are translated exactly once here: a current-named
// parameter (sortBy, hasMedia) takes precedence over its legacy twin
// (sort, withMedia); when only the legacy one is present it is mapped to the
// equivalent current value. Nothing downstream ever sees both names.
func ParseReviewQuery(r *http.Request) domain.ReviewQuery {
	qs := r.URL.Query()

	q := domain.ReviewQuery{
		Page:  GetIntQuery(r, "page", 1),
		Limit: GetIntQuery(r, "limit", 10),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	if v := qs.Get("sortBy"); v != "" {
		q.SortBy = normalizeReviewSort(v)
	} else {
		q.SortBy = normalizeReviewSort(qs.Get("sort"))
	}

	for _, part := range splitCSV(qs.Get("rating")) {
		if n, err := strconv.Atoi(part); err == nil && n >= 1 && n <= 5 {
			q.Ratings = append(q.Ratings, n)
		}
	}

	for _, part := range splitCSV(qs.Get("fit")) {
		fit := domain.FitType(strings.ToUpper(part))
		if fit.Valid() {
			q.Fits = append(q.Fits, fit)
		}
	}

	if v := qs.Get("hasMedia"); v != "" {
		q.HasMedia = v == "true"
	} else {
		q.HasMedia = qs.Get("withMedia") == "true"
	}

	return q
}

// normalizeReviewSort maps both accepted names per semantic onto the
// canonical sort key: helpful stays helpful, everything else (createdAt,
// newest, empty) orders by creation time.
func normalizeReviewSort(v string) domain.ReviewSort {
	if v == string(domain.ReviewSortHelpful) {
		return domain.ReviewSortHelpful
	}
	return domain.ReviewSortNewest
}

// ParseProductQuery normalizes catalog listing parameters
func ParseProductQuery(r *http.Request) domain.ProductQuery {
	qs := r.URL.Query()

	q := domain.ProductQuery{
		Page:   GetIntQuery(r, "page", 1),
		Limit:  GetIntQuery(r, "limit", 10),
		Search: strings.TrimSpace(qs.Get("search")),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	switch domain.ProductSort(qs.Get("sortBy")) {
	case domain.ProductSortName:
		q.SortBy = domain.ProductSortName
	case domain.ProductSortPrice:
		q.SortBy = domain.ProductSortPrice
	default:
		q.SortBy = domain.ProductSortCreatedAt
	}

	q.SortDesc = qs.Get("sortOrder") != "asc"

	return q
}

// MediaBlobFromFile classifies a multipart upload by its declared content
// type and wraps it as a media blob. Anything that is neither image nor
// video is rejected before any upload is attempted.
func MediaBlobFromFile(fh *multipart.FileHeader, maxImageBytes, maxVideoBytes int64) (*domain.MediaBlob, error) {
	contentType := fh.Header.Get("Content-Type")

	var category domain.MediaCategory
	var maxSize int64
	switch {
	case strings.HasPrefix(contentType, "image/"):
		category = domain.CategoryImage
		maxSize = maxImageBytes
	case strings.HasPrefix(contentType, "video/"):
		category = domain.CategoryVideo
		maxSize = maxVideoBytes
	default:
		return nil, fmt.Errorf("%w: unsupported media type %q", domain.ErrInvalidInput, contentType)
	}

	if fh.Size > maxSize {
		return nil, fmt.Errorf("%w: file %s exceeds maximum size", domain.ErrInvalidInput, fh.Filename)
	}

	file, err := fh.Open()
	if err != nil {
		return nil, err
	}

	return &domain.MediaBlob{
		Reader:      file,
		Size:        fh.Size,
		ContentType: contentType,
		Filename:    fh.Filename,
		Category:    category,
	}, nil
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
