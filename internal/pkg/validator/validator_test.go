package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guestForm struct {
	Email  string `validate:"required,email"`
	Locale string `validate:"locale"`
	Adults int    `validate:"gte=1"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(guestForm{Email: "ada@example.com", Locale: "fr", Adults: 2}))
	assert.NoError(t, Struct(guestForm{Email: "ada@example.com", Adults: 1}))
	assert.NoError(t, Struct(guestForm{Email: "ada@example.com", Locale: "fil", Adults: 1}))
	assert.Error(t, Struct(guestForm{Email: "ada@example.com", Locale: "fr-fr", Adults: 1}))

	err := Struct(guestForm{Email: "nope", Locale: "FR", Adults: 0})
	require.Error(t, err)
	fe, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "email", fe["Email"])
	assert.Equal(t, "locale", fe["Locale"])
	assert.Equal(t, "gte", fe["Adults"])
	assert.Equal(t, "invalid fields: Adults=gte, Email=email, Locale=locale", err.Error())
}
