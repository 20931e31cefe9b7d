package ygodb

import (
	"errors"
	"fmt"
)

// ErrNoData means the page exists but describes nothing, which is how the
// database answers for an id it never assigned.
var ErrNoData = errors.New("no data found")

// ExtractError is a page whose markup did not have the expected shape.
type ExtractError struct {
	Page   string
	Reason string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Page, e.Reason)
}
