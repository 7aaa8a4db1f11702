package db_test

import (
	"testing"

	"github.com/gnames/irts/internal/iodb"
	"github.com/gnames/irts/pkg/db"
	"github.com/stretchr/testify/assert"
)

// TestPgxOperatorImplementsInterface verifies that the pgx operator
// implements the db.Operator interface.
func TestPgxOperatorImplementsInterface(t *testing.T) {
	var op db.Operator = iodb.NewPgxOperator()
	assert.Nil(t, op.Pool(), "Pool should be nil before Connect")
}
