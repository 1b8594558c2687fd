package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripIsQuerySafe(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC), ID: uuid.New()}
	encoded := EncodeCursor(in)
	assert.False(t, strings.ContainsAny(encoded, "+/="))

	out, err := ParseCursor(encoded)
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseCursor("not-a-cursor!")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{}))
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, FetchLimit(10))
	assert.Equal(t, DefaultLimit+1, FetchLimit(-3))
}

func TestTrimPage(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Cursor, 4)
	for i := range rows {
		rows[i] = Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Hour), ID: uuid.New()}
	}
	identity := func(c Cursor) Cursor { return c }

	kept, next := TrimPage(rows, 3, identity)
	require.Len(t, kept, 3)
	require.NotEmpty(t, next)
	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[2].ID, cursor.ID)

	kept, next = TrimPage(rows[:2], 3, identity)
	assert.Len(t, kept, 2)
	assert.Empty(t, next)
}
