package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrInvalidMessage indicates a malformed message payload. It is a contract
// error, never retried; callers must fail fast.
var ErrInvalidMessage = errors.New("invalid message payload")

// EncodeMessage encodes a message into its wire form
func EncodeMessage(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMessage, "encode: %v", err)
	}
	return data, nil
}

// DecodeMessage decodes a wire-form message into the given receiver.
// Missing or unknown fields are left at their zero value.
func DecodeMessage(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errors.Wrap(ErrInvalidMessage, "decode: empty payload")
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(ErrInvalidMessage, "decode: %v", err)
	}

	return nil
}
