package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUUID(t *testing.T) {
	assert.NoError(t, IsUUID(NewUUID()))
	assert.ErrorIs(t, IsUUID(""), ErrInvalidUUID)
	assert.ErrorIs(t, IsUUID("not-a-uuid"), ErrInvalidUUID)
	assert.False(t, IsValidUUID("x"))
}
