package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	Email("email", "Acme <a@acme.com>", v)
	Email("empty", "", v)
	URL("site", "ftp://acme.com", v)
	URL("ok", "https://acme.com/x", v)
	OneOf("status", "Paused", []string{"Active", "Lead"}, v)
	OneOf("blank", "", []string{"Active"}, v)
	NonNegativeFloat("budget", -1, v)
	PositiveFloat("amount", 0, v)

	assert.Equal(t, Violations{
		"name":   "required",
		"email":  "invalid_email",
		"site":   "invalid_url",
		"status": "invalid_value",
		"budget": "must_not_be_negative",
		"amount": "must_be_positive",
	}, v)
	assert.False(t, v.Empty())
	assert.True(t, Violations{}.Empty())
}
