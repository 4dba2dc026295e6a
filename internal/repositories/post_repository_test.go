package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPostByIDInvalidHex(t *testing.T) {
	r := &MongoPostRepository{}

	_, err := r.GetPostByID(context.Background(), "not-a-hex-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPostID))
	assert.False(t, errors.Is(err, ErrPostNotFound))
}
