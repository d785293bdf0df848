package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchema(t *testing.T) {
	entries, err := fs.ReadDir(schemaFS, "sql")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs, "every up migration needs a down migration")

	up, err := fs.ReadFile(schemaFS, "sql/000001_quoting_schema.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"quotes", "quote_items", "quote_item_addons", "account_items", "invoices", "tax_locations", "activities"} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
