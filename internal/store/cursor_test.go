package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := &Cursor{
		ReceivedAt: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
		LogID:      "5f1b9350-3a7d-4a3f-9b63-1d2d0df6a001",
	}

	token := c.Encode()
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, c.ReceivedAt.Equal(decoded.ReceivedAt))
	assert.Equal(t, c.LogID, decoded.LogID)
}

func TestNilCursorEncodesEmpty(t *testing.T) {
	var c *Cursor
	assert.Equal(t, "", c.Encode())
}

func TestDecodeEmptyToken(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeInvalidToken(t *testing.T) {
	_, err := DecodeCursor("not base64 at all!!!")
	assert.Error(t, err)

	// Valid base64, invalid JSON.
	_, err = DecodeCursor("bm90LWpzb24")
	assert.Error(t, err)
}
