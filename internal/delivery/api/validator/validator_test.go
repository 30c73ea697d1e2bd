package validator

import (
	"testing"

	domainerrors "notekeeper/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name" validate:"omitempty,max=4"`
}

func TestValidate(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&signup{Email: "alice@x.com", Password: "secret1"}))

	err := v.Validate(&signup{Email: "nope", Password: "123", Name: "toolong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	var baseErr *domainerrors.BaseError
	require.ErrorAs(t, err, &baseErr)
	assert.Equal(t, "email must be a valid email; password must be at least 6 characters; name must be at most 4 characters", baseErr.Details())
}
