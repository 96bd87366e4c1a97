package csvframe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holos-company/etldrivers/pkg/etl"
)

func TestRead_InfersColumnTypes(t *testing.T) {
	input := "id,price,active,sold_at,label,zip\n" +
		"1,9.5,true,2024-01-02T03:04:05Z,a,01234\n" +
		"2,10,false,2024-01-03T03:04:05Z,b,99999\n"

	f, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price", "active", "sold_at", "label", "zip"}, f.Columns)
	require.Len(t, f.Rows, 2)

	assert.Equal(t, int64(1), f.Rows[0][0])
	assert.Equal(t, 9.5, f.Rows[0][1])
	assert.Equal(t, 10.0, f.Rows[1][1], "an integer cell in a float column is a float")
	assert.Equal(t, true, f.Rows[0][2])
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), f.Rows[0][3])
	assert.Equal(t, "a", f.Rows[0][4])
	assert.Equal(t, int64(1234), f.Rows[0][5])
}

func TestRead_NATokens(t *testing.T) {
	input := "a,b,c\n" +
		"1,NA,x\n" +
		",2.5,NULL\n" +
		"3,nan,None\n"

	f, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.Rows[0][0])
	assert.Equal(t, etl.Null, f.Rows[1][0])
	assert.True(t, etl.IsNull(f.Rows[0][1]))
	assert.Equal(t, 2.5, f.Rows[1][1])
	assert.True(t, etl.IsNull(f.Rows[2][1]))
	assert.Equal(t, "x", f.Rows[0][2])
	assert.True(t, etl.IsNull(f.Rows[1][2]))
	assert.True(t, etl.IsNull(f.Rows[2][2]))
}

func TestRead_AllMissingColumnIsNull(t *testing.T) {
	f, err := Read(strings.NewReader("a,b\n1,\n2,NA\n"))
	require.NoError(t, err)
	assert.True(t, etl.IsNull(f.Rows[0][1]))
	assert.True(t, etl.IsNull(f.Rows[1][1]))
}

func TestRead_Options(t *testing.T) {
	f, err := Read(strings.NewReader("a;b\n1;-\n2;x\n"),
		WithDelimiter(';'),
		WithNATokens("-"),
		WithoutInference(),
	)
	require.NoError(t, err)
	assert.Equal(t, "1", f.Rows[0][0])
	assert.True(t, etl.IsNull(f.Rows[0][1]))
	assert.Equal(t, "x", f.Rows[1][1])
}

func TestRead_LocalTimestamps(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	f, err := Read(strings.NewReader("at\n2024-06-01 12:00:00\n"), WithLocation(loc))
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 1, 12, 0, 0, 0, loc).Equal(f.Rows[0][0].(time.Time)))
}

func TestRead_StripsBOMAndSpaces(t *testing.T) {
	f, err := Read(strings.NewReader("\ufeff id , name\n1,x\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, f.Columns)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, etl.ErrInvalidInput)

	_, err = Read(strings.NewReader("a,b\n1,2,3\n"))
	assert.ErrorIs(t, err, etl.ErrInvalidInput)

	_, err = Read(strings.NewReader("a,a\n1,2\n"))
	assert.ErrorIs(t, err, etl.ErrInvalidInput)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("n\n1\n2\n"), 0644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, etl.ErrInvalidInput)
}
