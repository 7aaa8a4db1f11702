package ioexport

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

func OpenError(path string, err error) error {
	msg := "Cannot create snapshot <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.ExportOpenError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot open snapshot %s: %w", path, err),
	}
}

func WriteError(path string, err error) error {
	msg := "Cannot write snapshot <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.ExportWriteError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot write snapshot %s: %w", path, err),
	}
}
