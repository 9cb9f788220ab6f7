package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementsAreIdempotent(t *testing.T) {
	r := NewRunner()
	assert.Equal(t, "1.0.0", r.Version())

	stmts := r.Statements()
	assert.Len(t, stmts, 4)
	for _, s := range stmts {
		assert.Contains(t, s, "IF NOT EXISTS")
	}
	// tables referenced by foreign keys come first
	assert.True(t, strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS runs"))
}
