package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteOrder(t *testing.T) {
	tests := []struct {
		name     string
		orderBy  string
		orderDir string
		column   string
		desc     bool
	}{
		{"allowed column ascending", "contract_expires", "asc", "contract_expires", false},
		{"trimmed and case-insensitive direction", "  sent_on ", " ASC ", "sent_on", false},
		{"defaults to newest first", "", "", "created_at", true},
		{"unknown column falls back", "tax", "desc", "created_at", true},
		{"injection falls back", "status; DROP TABLE quotes;--", "asc", "created_at", false},
		{"subquery falls back", "id, (SELECT signature_file_id FROM quotes)", "sideways", "created_at", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quoteOrder(tt.orderBy, tt.orderDir)
			assert.Equal(t, tt.column, got.Column.Name)
			assert.Equal(t, tt.desc, got.Desc)
		})
	}
}
