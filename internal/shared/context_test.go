package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserIDFromContext(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), 7)

	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	id, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Zero(t, id)
}
