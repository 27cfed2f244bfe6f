package api

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidators(t *testing.T) {
	require.NoError(t, registerValidators())
	// repeated registration reports the first result
	require.NoError(t, registerValidators())

	type stay struct {
		CheckIn string `binding:"required,date"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(stay{CheckIn: "2026-03-29"}))

	err := binding.Validator.ValidateStruct(stay{CheckIn: "29/03/2026"})
	require.Error(t, err)
	assert.Equal(t, "checkin must be a date in YYYY-MM-DD format", bindingMessage(err))
}
