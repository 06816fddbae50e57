package decode

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Amund211/haloclient/internal/domain"
)

const excerptLength = 256

type Error struct {
	Excerpt string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (body: %q)", domain.ErrDecode.Error(), e.Err.Error(), e.Excerpt)
}

func (e *Error) Unwrap() []error {
	return []error{domain.ErrDecode, e.Err}
}

func newError(body []byte, err error) *Error {
	excerpt := body
	if len(excerpt) > excerptLength {
		excerpt = excerpt[:excerptLength]
	}
	return &Error{
		Excerpt: string(excerpt),
		Err:     err,
	}
}

// Object decodes a single JSON object. Unknown fields are ignored.
func Object[T any](body []byte) (T, error) {
	var value T
	if len(bytes.TrimSpace(body)) == 0 {
		return value, newError(body, fmt.Errorf("empty body"))
	}

	if err := json.Unmarshal(body, &value); err != nil {
		var zero T
		return zero, newError(body, err)
	}
	return value, nil
}

// List decodes a top-level JSON array, or an object wrapping it as {"items": [...]}.
//
// Element order is preserved and a null list decodes to an empty slice. Any other object,
// such as an error payload, is rejected.
func List[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, newError(body, fmt.Errorf("empty body"))
	}

	var items []T
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, newError(body, err)
		}
		raw, ok := envelope["items"]
		if !ok {
			return nil, newError(body, fmt.Errorf("expected a list or an object with items"))
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, newError(body, err)
		}
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, newError(body, err)
	}

	if items == nil {
		items = []T{}
	}
	return items, nil
}
