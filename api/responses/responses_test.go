package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"inquiryNo": "RFQ-2026-0001"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"inquiryNo":"RFQ-2026-0001"}}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    pkgerrors.Code
		message string
		details bool
	}{
		{
			name: "business message and reason survive",
			err: pkgerrors.New(pkgerrors.CodeBadRequest, "quantity is below the minimum order quantity").
				WithDetails(map[string]any{"reason": "moq_violation", "moq": 5}),
			status: http.StatusBadRequest, code: pkgerrors.CodeBadRequest,
			message: "quantity is below the minimum order quantity", details: true,
		},
		{
			name:   "wrapped state conflict",
			err:    fmt.Errorf("ship order: %w", pkgerrors.New(pkgerrors.CodeStateConflict, "order is already shipped")),
			status: http.StatusUnprocessableEntity, code: pkgerrors.CodeStateConflict,
			message: "order is already shipped",
		},
		{
			name:   "untyped error stays private",
			err:    errors.New("dial tcp 10.0.0.3:5432: refused"),
			status: http.StatusInternalServerError, code: pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:   "details withheld when not allowed",
			err:    pkgerrors.New(pkgerrors.CodeForbidden, "not your order").WithDetails(map[string]any{"owner": "x"}),
			status: http.StatusForbidden, code: pkgerrors.CodeForbidden,
			message: "not your order",
		},
		{
			name:   "nil error",
			status: http.StatusInternalServerError, code: pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode[types.ErrorEnvelope](t, rec)
			assert.Equal(t, string(tt.code), body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
			assert.Equal(t, tt.details, body.Error.Details != nil)
		})
	}
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set(RequestIDHeader, "req-0001-abcd")
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found"))

	body := decode[types.ErrorEnvelope](t, rec)
	assert.Equal(t, "req-0001-abcd", body.Error.RequestID)
}

func TestWriteErrorLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(),
		pkgerrors.New(pkgerrors.CodeBadRequest, "bad qty").WithDetails(map[string]any{"reason": "moq_violation"}))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "moq_violation", line["reason"])
	assert.EqualValues(t, http.StatusBadRequest, line["status"])

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("redis: connection refused"))
	line = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "request.error", line["message"])
}
