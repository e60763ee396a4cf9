package cache

import "encoding"

// Encode converts a value accepted by Cache.Set into bytes.
func Encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case encoding.BinaryMarshaler:
		return v.MarshalBinary()
	default:
		return nil, ErrInvalidValue
	}
}

// Decode fills a value accepted by Cache.Get from bytes.
func Decode(data []byte, value interface{}) error {
	switch v := value.(type) {
	case *string:
		*v = string(data)
	case *[]byte:
		*v = append((*v)[:0], data...)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(data)
	default:
		return ErrInvalidValue
	}
	return nil
}
