// internal/view/filter.go

// Package view derives what a column shows from its partition: the tasks that
// match the search term, capped to the number of pages requested.
package view

import (
	"strings"

	"github.com/gurkanbulca/taskboard/internal/models"
)

// DefaultPageSize is the number of tasks revealed per page.
const DefaultPageSize = 10

// Page is the visible part of a filtered partition.
type Page struct {
	Tasks     []models.Task
	Matched   int
	Remaining int
	HasMore   bool
}

// Filter returns the tasks whose title or description contains term, ignoring
// case, limited to pageSize*pageCount entries. An empty term matches every
// task. The input slice is never modified.
func Filter(tasks []models.Task, term string, pageSize, pageCount int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageCount < 1 {
		pageCount = 1
	}

	needle := strings.ToLower(term)
	matched := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if Matches(t, needle) {
			matched = append(matched, t)
		}
	}

	// Compare by division so huge page counts cannot overflow.
	limit := len(matched)
	if pageCount <= (len(matched)-1)/pageSize {
		limit = pageSize * pageCount
	}
	return Page{
		Tasks:     matched[:limit:limit],
		Matched:   len(matched),
		Remaining: len(matched) - limit,
		HasMore:   limit < len(matched),
	}
}

// Matches reports whether t matches the lower-cased search term.
func Matches(t models.Task, lowerTerm string) bool {
	if lowerTerm == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), lowerTerm) ||
		strings.Contains(strings.ToLower(t.Description), lowerTerm)
}
