package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "movido/pkg/domain-errors"
)

type checkoutBody struct {
	PriceID       string `json:"priceId" validate:"required"`
	SuccessURL    string `json:"successUrl,omitempty" validate:"omitempty,url"`
	CancelURL     string `json:"cancelUrl,omitempty" validate:"omitempty,url"`
	CustomerEmail string `json:"customerEmail,omitempty" validate:"omitempty,email"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     checkoutBody
		wantErr string
	}{
		{
			name: "valid request",
			req:  checkoutBody{PriceID: "price_1T4QFJ0gB9FXYr87He7OG4q2"},
		},
		{
			name:    "missing price id uses the wire field name",
			req:     checkoutBody{CustomerEmail: "dispatcher@movido.co.uk"},
			wantErr: "priceId is required",
		},
		{
			name:    "malformed success url",
			req:     checkoutBody{PriceID: "price_x", SuccessURL: "not-a-url"},
			wantErr: "successUrl must be a valid url",
		},
		{
			name:    "malformed customer email",
			req:     checkoutBody{PriceID: "price_x", CustomerEmail: "not-an-email"},
			wantErr: "customerEmail must be a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tt.wantErr, dErrors.Message(err))
		})
	}
}
