package main

import (
	"strconv"
	"strings"
)

const (
	adminDefaultPage    = 1
	adminDefaultPerPage = 50
	adminMaxPerPage     = 200
)

type paginationView struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

func parseAdminPage(rawPage string) int {
	page, err := strconv.Atoi(strings.TrimSpace(rawPage))
	if err != nil || page < adminDefaultPage {
		return adminDefaultPage
	}
	return page
}

func parseAdminPerPage(rawPerPage string) int {
	perPage, err := strconv.Atoi(strings.TrimSpace(rawPerPage))
	if err != nil || perPage < 1 {
		return adminDefaultPerPage
	}
	if perPage > adminMaxPerPage {
		return adminMaxPerPage
	}
	return perPage
}

func buildPaginationView(totalCount, currentPage, pageSize int) paginationView {
	if pageSize < 1 {
		pageSize = adminDefaultPerPage
	}
	if currentPage < adminDefaultPage {
		currentPage = adminDefaultPage
	}

	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}

	return paginationView{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasNext:     currentPage < totalPages,
		HasPrev:     currentPage > adminDefaultPage,
	}
}

// paginate returns the requested page of items. A page past the end is empty.
func paginate[T any](items []T, page, pageSize int) ([]T, paginationView) {
	view := buildPaginationView(len(items), page, pageSize)
	if pageSize < 1 {
		pageSize = adminDefaultPerPage
	}
	if view.CurrentPage > view.TotalPages {
		return []T{}, view
	}
	start := (view.CurrentPage - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], view
}
