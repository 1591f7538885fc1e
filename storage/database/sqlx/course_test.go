package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func TestCourseOrderings(t *testing.T) {
	const week = "array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday']::text[], day::text)"
	assert.Equal(t, week, dayOrder)

	got := courseOrderings([]core.DBOrdering{{Field: "day"}, {Field: "start_time", Ascending: true}})
	assert.Equal(t, []core.DBOrdering{{Field: week}, {Field: "start_time", Ascending: true}}, got)
	assert.Empty(t, courseOrderings(nil))

	query, _, err := orderBy(psql.Select("id").From("course"), got, "").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM course ORDER BY "+week+" DESC, start_time ASC", query)

	query, _, err = orderBy(psql.Select("id").From("course"), nil, dayOrder+", start_time").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM course ORDER BY "+week+", start_time", query)
}
