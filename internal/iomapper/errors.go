package iomapper

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

func ReadError(path string, err error) error {
	msg := "Cannot read mappings from <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.MappingsReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read mappings %s: %w", path, err),
	}
}

func ParseError(path string, err error) error {
	msg := "Mappings in <em>%s</em> are invalid"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.MappingsParseError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot parse mappings %s: %w", path, err),
	}
}
