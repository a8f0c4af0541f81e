package message

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
)

// Encode turns a publish body into bytes and the content type it implies.
// Raw bytes and nil carry no content type, strings are text, everything else is JSON.
func Encode(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), ContentTypeText, nil
	case *Message:
		return v.Body, v.ContentType, nil
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode %T: %w", body, errors.Join(berr.ErrSerializationFailed, err))
	}

	return b, ContentTypeJSON, nil
}
