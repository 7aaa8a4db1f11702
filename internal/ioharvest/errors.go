package ioharvest

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/irts/pkg/errcode"
)

// RequestError is returned when an API cannot be reached.
func RequestError(url string, err error) error {
	msg := `Request to <em>%s</em> failed

<em>Possible causes:</em>
  - No network connection
  - The API is down or too slow`

	return &gn.Error{
		Code: errcode.HarvestRequestError,
		Msg:  msg,
		Vars: []any{url},
		Err:  fmt.Errorf("request %s: %w", url, err),
	}
}

// ResponseError is returned when an API answers with an error status.
func ResponseError(url string, status int) error {
	msg := `API returned status <em>%d</em> for <em>%s</em>`

	return &gn.Error{
		Code: errcode.HarvestResponseError,
		Msg:  msg,
		Vars: []any{status, url},
		Err:  fmt.Errorf("request %s: status %d", url, status),
	}
}

// ParseError is returned when a payload cannot be decoded.
func ParseError(source, what string, err error) error {
	msg := `Cannot parse <em>%s</em> data: %s`

	return &gn.Error{
		Code: errcode.HarvestParseError,
		Msg:  msg,
		Vars: []any{source, what},
		Err:  fmt.Errorf("parse %s %s: %w", source, what, err),
	}
}
