package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Zooms string `validate:"required"`
}

func TestSendError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "app error",
			err:          errors.Newf(errors.ErrInput, "bad zoom"),
			expectedCode: 400,
			expectedBody: errors.CodeInput,
		},
		{
			name:         "wrapped app error",
			err:          fmt.Errorf("handler: %w", errors.Newf(errors.ErrNetwork, "down")),
			expectedCode: 502,
			expectedBody: errors.CodeNetwork,
		},
		{
			name:         "validation error",
			err:          validator.Validate(&request{}),
			expectedCode: 400,
			expectedBody: "INVALID_REQUEST",
		},
		{
			name:         "unknown error",
			err:          io.ErrUnexpectedEOF,
			expectedCode: 500,
			expectedBody: "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return SendError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.expectedBody)
		})
	}
}

func TestSendSuccess(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return SendSuccess(c, map[string]int{"total": 2}, &Meta{Total: 2}) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var out struct {
		Data map[string]int `json:"data"`
		Meta Meta           `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Data["total"])
	assert.Equal(t, 2, out.Meta.Total)
}
