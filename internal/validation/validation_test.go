package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Username string `validate:"required"`
	Reason   string `validate:"max=5"`
	Mode     string `validate:"omitempty,oneof=a b"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      loginRequest
		wantErr string
	}{
		{"valid", loginRequest{Username: "admin"}, ""},
		{"missing username", loginRequest{}, "username is required"},
		{"too long", loginRequest{Username: "x", Reason: "abcdefg"}, "reason must be at most 5 characters"},
		{"bad enum", loginRequest{Username: "x", Mode: "c"}, "mode must be one of [a b]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantErr, verr.Error())
		})
	}
}
