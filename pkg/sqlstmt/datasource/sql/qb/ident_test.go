package qb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "single letter", input: "a", valid: true},
		{name: "word", input: "user", valid: true},
		{name: "digits and underscore", input: "user_2", valid: true},
		{name: "dash", input: "user-log", valid: true},
		{name: "dollar", input: "$tmp", valid: true},
		{name: "empty", input: ""},
		{name: "space", input: "user name"},
		{name: "schema qualified", input: "db.user"},
		{name: "backtick", input: "user`"},
		{name: "statement injection", input: "user; DROP TABLE user"},
		{name: "unicode", input: "usér"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateIdentifier(tc.input)
			if tc.valid {
				require.NoError(t, err)
				assert.Equal(t, tc.input, got)

				return
			}

			require.ErrorIs(t, err, ErrInvalidIdentifier)
			assert.Empty(t, got)
		})
	}
}

func TestPlaceholderBase(t *testing.T) {
	assert.Equal(t, "user_id_1", placeholderBase("user_id", 1))
	assert.Equal(t, "user_id_2", placeholderBase("user-id", 2))
	assert.Equal(t, "_2fa_1", placeholderBase("2fa", 1))
	assert.Equal(t, "_tmp_0", placeholderBase("$tmp", 0))
}
