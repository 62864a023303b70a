package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"telecomstore/internal/apperr"
	"telecomstore/internal/store"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type pagination struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type listResponse struct {
	Items      any         `json:"items"`
	Pagination *pagination `json:"pagination,omitempty"`
}

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(defaultPage)
	limit := int64(defaultLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperr.Validation("page must be a positive integer")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, apperr.Validation("limit must be a positive integer")
		}
		if l > maxLimit {
			l = maxLimit
		}
		limit = l
	}

	return page, limit, nil
}

// pageFromQuery paginates only when both page and limit are present.
// The zero Page lists everything.
func pageFromQuery(c *gin.Context) (store.Page, error) {
	pageStr, limitStr := c.Query("page"), c.Query("limit")
	if pageStr == "" || limitStr == "" {
		return store.Page{}, nil
	}
	page, limit, err := parsePaginationParams(pageStr, limitStr)
	if err != nil {
		return store.Page{}, err
	}
	return store.Page{Page: page, Limit: limit}, nil
}

func newListResponse(items any, total int64, page store.Page) listResponse {
	if page.Limit <= 0 {
		return listResponse{Items: items}
	}
	return listResponse{
		Items: items,
		Pagination: &pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: (total + page.Limit - 1) / page.Limit,
		},
	}
}
