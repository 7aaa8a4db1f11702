package iometrics

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

func WriteError(path string, err error) error {
	msg := "Cannot write metrics to <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.MetricsWriteError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot write metrics %s: %w", path, err),
	}
}
