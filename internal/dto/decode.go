package dto

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"

	"price-service/internal/apperror"
)

// Decode reads exactly one JSON value from r into v. what names the value in
// error messages, e.g. "request body" or "item". JSON problems come back as
// InvalidArgument; read errors from r are returned unchanged.
func Decode(r io.Reader, v interface{}, what string) error {
	src := &sourceReader{r: r}
	dec := json.NewDecoder(src)
	if err := dec.Decode(v); err != nil {
		if src.err != nil {
			return src.err
		}
		return decodeError(err, what)
	}

	_, err := dec.Token()
	switch {
	case src.err != nil:
		return src.err
	case errors.Is(err, io.EOF):
		return nil
	}
	return apperror.Newf(apperror.InvalidArgument, "%s must contain a single JSON object", what)
}

// sourceReader keeps the first read error so it is not mistaken for bad JSON.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}
	return n, err
}

func decodeError(err error, what string) error {
	var typeErr *json.UnmarshalTypeError
	var syntax *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return apperror.Wrap(apperror.InvalidArgument, what+" must be a JSON object", err)
		}
		return apperror.Wrap(apperror.InvalidArgument, typeErr.Field+" must be "+jsonKind(typeErr.Type), err)
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.Wrap(apperror.InvalidArgument, what+" is not valid JSON", err)
	case errors.Is(err, io.EOF):
		return apperror.Wrap(apperror.InvalidArgument, what+" is empty", err)
	}
	// rejected by a field's own UnmarshalJSON
	return apperror.Wrap(apperror.InvalidArgument, what+" contains an invalid value", err)
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	}
	return "a valid value"
}
