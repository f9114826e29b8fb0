package repository

import (
	"strings"

	"gorm.io/gorm"
)

const (
	// DefaultPerPage matches the page size of every listing screen.
	DefaultPerPage = 20
	maxPerPage     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page    int
	PerPage int
}

func (p Pagination) normalized() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Pagination) offset() int { return (p.Page - 1) * p.PerPage }

// Page describes one slice of a listing.
type Page struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	HasNext bool  `json:"has_next"`
}

// paginate counts the filtered query, then loads one page of it into dest
// with the named associations preloaded. The count runs on its own session.
func paginate(q *gorm.DB, p Pagination, dest any, preloads ...string) (Page, error) {
	p = p.normalized()
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page{}, err
	}
	for _, assoc := range preloads {
		q = q.Preload(assoc)
	}
	if err := q.Offset(p.offset()).Limit(p.PerPage).Find(dest).Error; err != nil {
		return Page{}, err
	}
	return Page{
		Total:   total,
		Page:    p.Page,
		PerPage: p.PerPage,
		HasNext: int64(p.offset()+p.PerPage) < total,
	}, nil
}

// like builds a pattern for LOWER(column) LIKE ? comparisons.
func like(s string) string { return "%" + strings.ToLower(strings.TrimSpace(s)) + "%" }
