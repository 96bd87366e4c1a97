package etl_test

import (
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holos-company/etldrivers/pkg/etl"
)

func TestNewFrame_Validation(t *testing.T) {
	_, err := etl.NewFrame(nil, nil)
	assert.ErrorIs(t, err, etl.ErrInvalidInput)

	_, err = etl.NewFrame([]string{"a", "a"}, nil)
	assert.ErrorIs(t, err, etl.ErrInvalidInput)
	assert.Contains(t, err.Error(), "duplicate column")

	_, err = etl.NewFrame([]string{"a", "b"}, [][]any{{1, 2}, {3}})
	assert.ErrorIs(t, err, etl.ErrInvalidInput)
	assert.Contains(t, err.Error(), "row 1")

	f, err := etl.NewFrame([]string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []any{"x", "y"}, f.Column(1))
}

func TestFrame_NilLen(t *testing.T) {
	var f *etl.Frame
	assert.Equal(t, 0, f.Len())
	assert.ErrorIs(t, f.Validate(), etl.ErrInvalidInput)
}

func TestIsNull(t *testing.T) {
	var nilPtr *int
	var nilSlice []byte
	var nilMap map[string]any
	var nilValuer *sql.NullString
	n := 3

	nulls := map[string]any{
		"nil":         nil,
		"sentinel":    etl.Null,
		"nan64":       math.NaN(),
		"nan32":       float32(math.NaN()),
		"nil pointer": nilPtr,
		"nil slice":   nilSlice,
		"nil map":     nilMap,
		"invalid sql": sql.NullInt64{},
		"nil valuer":  nilValuer,
	}
	for name, v := range nulls {
		assert.True(t, etl.IsNull(v), name)
	}

	values := map[string]any{
		"zero int":     0,
		"empty string": "",
		"false":        false,
		"pointer":      &n,
		"valid sql":    sql.NullString{String: "x", Valid: true},
		"inf":          math.Inf(1),
	}
	for name, v := range values {
		assert.False(t, etl.IsNull(v), name)
	}
}

func TestFrame_NormalizedLeavesReceiver(t *testing.T) {
	f, err := etl.NewFrame([]string{"a", "b"}, [][]any{{etl.Null, 1}, {math.NaN(), "x"}})
	require.NoError(t, err)

	rows := f.Normalized()
	assert.Equal(t, [][]any{{nil, 1}, {nil, "x"}}, rows)
	assert.Equal(t, etl.Null, f.Rows[0][0])
}
