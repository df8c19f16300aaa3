package persist

import "errors"

var (
	errBoom  = errors.New("boom")
	errOther = errors.New("other")
)
