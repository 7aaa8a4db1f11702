package iostore

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

// QueryError is returned when a database operation of the store fails.
func QueryError(op string, err error) error {
	msg := "Database operation <em>%s</em> failed"
	return &gn.Error{
		Code: errcode.StoreQueryError,
		Msg:  msg,
		Vars: []any{op},
		Err:  fmt.Errorf("store %s: %w", op, err),
	}
}
