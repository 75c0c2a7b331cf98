package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

// MaxBodyBytes caps JSON bodies. Excel uploads use their own multipart limit.
const MaxBodyBytes = 1 << 20

// DecodeJSONBody reads exactly one JSON object into dest and then checks its
// validate tags. Unknown fields and trailing data are rejected.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single JSON object")
	}
	return ValidateStruct(dest)
}

// decodeError names the offending field when the decoder knows it.
func decodeError(err error) error {
	var (
		tooLarge  *http.MaxBytesError
		wrongType *json.UnmarshalTypeError
		syntax    *json.SyntaxError
	)
	switch {
	case errors.Is(err, io.EOF):
		return pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	case errors.As(err, &tooLarge):
		return pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
			WithDetails(map[string]any{"limit": tooLarge.Limit})
	case errors.As(err, &wrongType) && wrongType.Field != "":
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
			WithDetails(map[string]string{wrongType.Field: "wrong type, want " + wrongType.Type.String()})
	case errors.As(err, &syntax):
		return pkgerrors.New(pkgerrors.CodeValidation, "malformed JSON").
			WithDetails(map[string]any{"offset": syntax.Offset})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}
