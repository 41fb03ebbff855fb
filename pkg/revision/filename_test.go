package revision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestSlug_Deterministic(t *testing.T) {
	a := Slug("create users table")
	b := Slug("create users table")
	assert.Equal(t, a, b)
	assert.LessOrEqual(t, len(a), 10)
}

func TestRenderFilename_DefaultFormat(t *testing.T) {
	name, err := RenderFilename(DefaultFileFormat, "0001", "create users table", "jane")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "1-"))
	assert.True(t, strings.HasSuffix(name, "-create_users_table.sql"))
}

func TestRenderFilename_SlugPlaceholder(t *testing.T) {
	name, err := RenderFilename("{version}_{slug}_{message}", "1", "add index", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "1_"))
	assert.True(t, strings.HasSuffix(name, ".sql"))
}

func TestRenderFilename_MissingVersionAndMessage(t *testing.T) {
	_, err := RenderFilename("{slug}", "", "", "")
	require.Error(t, err)
}

func TestRenderFilename_StripsLeadingZerosFromNumericVersion(t *testing.T) {
	name, err := RenderFilename("{version}_{message}", "0007", "add index", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "7_"))
}

func TestRenderFilename_NonNumericVersionPassesThrough(t *testing.T) {
	name, err := RenderFilename("{version}_{message}", "0007abc", "add index", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "0007abc_"))
}

func TestRenderFilename_AlreadyHasSQLSuffix(t *testing.T) {
	name, err := RenderFilename("{version}.sql", "42", "msg", "")
	require.NoError(t, err)
	assert.Equal(t, "42.sql", name)
}

func TestRenderFilename_Golden(t *testing.T) {
	name, err := RenderFilename("{version}_{slug}_{message}.sql", "42", "add an index to users", "jane")
	require.NoError(t, err)
	golden.Assert(t, name, "filename.golden")
}
