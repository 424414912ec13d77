package board

import (
	"strings"

	"github.com/ldi/corkboard/pkg/models"
)

// Filter criteria are session-only: changing them never reaches the
// Persister, it only invalidates the selector stages that read them.

func (s *Store) SetSearchQuery(query string) bool {
	return s.applyFilter(func(f *models.Filter) bool {
		if f.Query == query {
			return false
		}
		f.Query = query
		return true
	})
}

func (s *Store) SetPriorityFilter(p models.Priority) bool {
	return s.applyFilter(func(f *models.Filter) bool {
		if f.Priority == p {
			return false
		}
		f.Priority = p
		return true
	})
}

func (s *Store) SetAssigneeFilter(assignee string) bool {
	assignee = strings.TrimSpace(assignee)
	return s.applyFilter(func(f *models.Filter) bool {
		if f.Assignee == assignee {
			return false
		}
		f.Assignee = assignee
		return true
	})
}

func (s *Store) SetDueDateFilter(b models.DueBucket) bool {
	return s.applyFilter(func(f *models.Filter) bool {
		if f.DueDate == b {
			return false
		}
		f.DueDate = b
		return true
	})
}

func (s *Store) SetStatusFilter(status string) bool {
	status = strings.TrimSpace(status)
	return s.applyFilter(func(f *models.Filter) bool {
		if f.Status == status {
			return false
		}
		f.Status = status
		return true
	})
}

func (s *Store) ClearFilters() bool {
	return s.applyFilter(func(f *models.Filter) bool {
		if f.IsZero() {
			return false
		}
		*f = models.Filter{}
		return true
	})
}
