package option_test

import (
	"testing"
	"time"

	"github.com/smallbiznis/invoicely/pkg/db"
	"github.com/smallbiznis/invoicely/pkg/db/option"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type note struct {
	ID        int64 `gorm:"primaryKey"`
	Title     string
	ClosedAt  *time.Time
	CreatedAt time.Time
}

func seedNotes(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&note{}))

	closed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []note{
		{ID: 1, Title: "Acme 50%_off"},
		{ID: 2, Title: "acme traders", ClosedAt: &closed},
		{ID: 3, Title: "Globex"},
		{ID: 4, Title: "Initech"},
	}
	require.NoError(t, conn.Create(&rows).Error)
	return conn
}

func ids(t *testing.T, stmt *gorm.DB) []int64 {
	t.Helper()
	var out []int64
	require.NoError(t, stmt.Model(&note{}).Order("id").Pluck("id", &out).Error)
	return out
}

func TestApplySearchIsCaseInsensitiveAndEscapesWildcards(t *testing.T) {
	conn := seedNotes(t)

	assert.Equal(t, []int64{1, 2}, ids(t, option.ApplySearch("ACME", "title").Apply(conn)))
	assert.Equal(t, []int64{1}, ids(t, option.ApplySearch("50%_", "title").Apply(conn)))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(t, option.ApplySearch("  ", "title").Apply(conn)))
}

func TestApplySearchEscapeClauseIsPortable(t *testing.T) {
	conn := seedNotes(t)
	require.NoError(t, conn.Create(&note{ID: 5, Title: "Wow! deal"}).Error)

	assert.Equal(t, []int64{5}, ids(t, option.ApplySearch("wow!", "title").Apply(conn)))
	assert.Empty(t, ids(t, option.ApplySearch("wow!!", "title").Apply(conn)))

	sql := conn.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return option.ApplySearch("50%", "title").Apply(tx.Model(&note{})).Find(&[]note{})
	})
	assert.Contains(t, sql, "ESCAPE '!'")
	assert.NotContains(t, sql, `\`)
}

func TestIsNullAndOperators(t *testing.T) {
	conn := seedNotes(t)

	assert.Equal(t, []int64{1, 3, 4}, ids(t, option.IsNull("closed_at").Apply(conn)))
	assert.Equal(t, []int64{3, 4}, ids(t, option.ApplyOperator(option.Condition{Field: "id", Operator: option.GTE, Value: 3}).Apply(conn)))
	assert.Equal(t, []int64{1, 4}, ids(t, option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: []int64{1, 4}}).Apply(conn)))
}

func TestApplyPaginationFetchesOneExtraRowNewestFirst(t *testing.T) {
	conn := seedNotes(t)

	var first []note
	require.NoError(t, option.ApplyPagination(pagination.Pagination{PageSize: 2}, "id").Apply(conn).Find(&first).Error)
	require.Len(t, first, 3)
	assert.Equal(t, int64(4), first[0].ID)

	token := pagination.EncodeCursor(pagination.Cursor{ID: "3"})
	var next []note
	require.NoError(t, option.ApplyPagination(pagination.Pagination{PageToken: token, PageSize: 2}, "id").Apply(conn).Find(&next).Error)
	require.Len(t, next, 2)
	assert.Equal(t, int64(2), next[0].ID)

	var restart []note
	require.NoError(t, option.ApplyPagination(pagination.Pagination{PageToken: "garbage", PageSize: 10}, "id").Apply(conn).Find(&restart).Error)
	assert.Len(t, restart, 4)
}
