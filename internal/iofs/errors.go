package iofs

import (
	"fmt"
	"runtime"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

func CreateDirError(dir string, err error) error {
	msg := "Cannot create %s"
	vars := []any{dir}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CreateDirError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot create directory: %w",
			fn, err),
	}
}

func CopyFileError(file string, err error) error {
	msg := "Cannot copy default file to %s"
	vars := []any{file}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.CopyFileError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("from %s: cannot copy file: %w",
			fn, err),
	}
}

func ReadFileError(path string, err error) error {
	msg := "Cannot read <em>%s</em>"
	vars := []any{path}
	pc, _, _, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	return &gn.Error{
		Code: errcode.ReadFileError,
		Err:  fmt.Errorf("from %s: cannot read %s: %w", fn, path, err),
		Msg:  msg,
		Vars: vars,
	}
}

func RecordReadError(path string, err error) error {
	msg := "Cannot read record from <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.RecordReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read record %s: %w", path, err),
	}
}

func RecordParseError(path string, err error) error {
	msg := "File <em>%s</em> is not a valid JSON record"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.RecordParseError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot parse record %s: %w", path, err),
	}
}
