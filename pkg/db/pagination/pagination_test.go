package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, DefaultPageSize, Pagination{PageSize: -3}.Size())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 5000}.Size())
}

func TestCursorRoundTrip(t *testing.T) {
	token := EncodeCursor(Cursor{ID: "1790001112223334445"})
	got, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1790001112223334445", got.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "!!!", EncodeCursor(Cursor{})} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestTrim(t *testing.T) {
	key := func(v int) string { return strconv.Itoa(v) }

	page := Trim([]int{9, 8, 7}, 3, key)
	assert.Equal(t, []int{9, 8, 7}, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextPageToken)

	page = Trim([]int{9, 8, 7, 6}, 3, key)
	assert.Equal(t, []int{9, 8, 7}, page.Items)
	assert.True(t, page.HasMore)
	cursor, err := DecodeCursor(page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "7", cursor.ID)
}
