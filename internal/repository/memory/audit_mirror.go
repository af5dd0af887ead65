package memory

import (
	"strings"
	"sync"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
)

// AuditMirror keeps the most recent audit entries in a bounded ring for
// hot reads. It is a read mirror only; the durable store retains
// everything and trimming here never touches the system of record.
type AuditMirror struct {
	mu       sync.RWMutex
	capacity int
	entries  []domain.AuditEntry
}

// NewAuditMirror constructs a mirror retaining up to capacity entries.
func NewAuditMirror(capacity int) *AuditMirror {
	if capacity <= 0 {
		capacity = 100
	}
	return &AuditMirror{capacity: capacity}
}

// Append records an entry, trimming the oldest past capacity.
func (m *AuditMirror) Append(entry domain.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
}

// Recent returns mirrored entries matching the filter, newest first.
func (m *AuditMirror) Recent(filter domain.AuditFilter) []domain.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []domain.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		entry := m.entries[i]
		if !mirrorMatches(entry, filter) {
			continue
		}
		matched = append(matched, entry)
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}
	return matched
}

func mirrorMatches(entry domain.AuditEntry, filter domain.AuditFilter) bool {
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.ActorID != "" && entry.ActorID != filter.ActorID {
		return false
	}
	if filter.Resource != "" && entry.Resource != filter.Resource {
		return false
	}
	if filter.Outcome != "" && entry.Outcome != filter.Outcome {
		return false
	}
	if !filter.From.IsZero() && entry.At.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && entry.At.After(filter.To) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(strings.Join([]string{
			entry.Action,
			string(entry.Resource),
			entry.ResourceID,
			entry.ActorID,
		}, " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

var _ port.AuditMirror = (*AuditMirror)(nil)
