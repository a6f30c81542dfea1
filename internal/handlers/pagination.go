package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"campushub/internal/apperrors"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var errInvalidPagination = apperrors.New(apperrors.KindValidation, "invalid pagination params")

func parsePaginationParams(pageStr, limitStr string) (int, int, error) {
	page := 1
	limit := defaultPageLimit

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > maxPageLimit {
			return 0, 0, errInvalidPagination
		}
		limit = l
	}

	return page, limit, nil
}

// paginate slices items for ?page=&limit= and wraps them in the list envelope.
func paginate[T any](c *gin.Context, items []T) (gin.H, error) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		return nil, err
	}

	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	return gin.H{
		"data":  items[start:end],
		"page":  page,
		"limit": limit,
		"total": len(items),
	}, nil
}
