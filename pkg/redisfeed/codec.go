package redisfeed

import (
	"encoding/json"
	"fmt"
)

// Decoder turns a pub/sub payload into a value.
type Decoder[T any] func(data []byte) (T, error)

// Encoder turns a value into a pub/sub payload.
type Encoder[T any] func(v T) ([]byte, error)

// JSONDecoder decodes JSON payloads.
func JSONDecoder[T any]() Decoder[T] {
	return func(data []byte) (T, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return v, nil
	}
}

// JSONEncoder encodes values as JSON.
func JSONEncoder[T any]() Encoder[T] {
	return func(v T) ([]byte, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		return data, nil
	}
}
