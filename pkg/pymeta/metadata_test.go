package pymeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setupshim/setupshim/pkg/reqs"
)

const sampleMetadata = `Metadata-Version: 2.1
Name: demo
Version: 1.2.0
Summary: A demonstration package
Provides-Extra: test
Provides-Extra: docs
Requires-Dist: requests (>=2.8.1)
Requires-Dist: enum34; python_version < "3.4"
Requires-Dist: pytest (>=3.0); extra == "test"
Requires-Dist: sphinx; extra == "docs"

This is the long description. It is not part of the headers and
must be ignored.
`

var testEnv = reqs.Environment{
	"python_version": "3.11",
	"sys_platform":   "linux",
}

func reqStrings(requirements []*reqs.Requirement) []string {
	result := make([]string, len(requirements))
	for idx, req := range requirements {
		result[idx] = req.String()
	}

	return result
}

func TestParse(t *testing.T) {
	meta, err := Parse([]byte(sampleMetadata))
	require.NoError(t, err)

	assert.Equal(t, "demo", meta.Name)
	assert.Equal(t, "1.2.0", meta.Version)
	assert.Equal(t, "A demonstration package", meta.Summary)
	assert.Equal(t, []string{"test", "docs"}, meta.ProvidesExtra)
	assert.Len(t, meta.RequiresDist, 4)
}

func TestParseErrors(t *testing.T) {
	t.Run("MissingName", func(t *testing.T) {
		_, err := Parse([]byte("Version: 1.0\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Name")
	})

	t.Run("MissingVersion", func(t *testing.T) {
		_, err := Parse([]byte("Name: demo\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Version")
	})

	t.Run("InvalidRequiresDist", func(t *testing.T) {
		_, err := Parse([]byte("Name: demo\nVersion: 1.0\nRequires-Dist: ==broken\n"))
		assert.Error(t, err)
	})
}

func TestRequires(t *testing.T) {
	meta, err := Parse([]byte(sampleMetadata))
	require.NoError(t, err)

	t.Run("Base", func(t *testing.T) {
		base, err := meta.Requires(testEnv)
		require.NoError(t, err)

		// enum34 is gated on an old interpreter, the extras aren't requested
		assert.Equal(t, []string{"requests>=2.8.1"}, reqStrings(base))
	})

	t.Run("EnvironmentMarkers", func(t *testing.T) {
		oldEnv := reqs.Environment{"python_version": "2.7"}
		base, err := meta.Requires(oldEnv)
		require.NoError(t, err)

		assert.Equal(t, []string{"requests>=2.8.1", "enum34"}, reqStrings(base))
	})

	t.Run("Extra", func(t *testing.T) {
		withTest, err := meta.Requires(testEnv, "test")
		require.NoError(t, err)

		assert.Equal(t, []string{"requests>=2.8.1", "pytest>=3.0"}, reqStrings(withTest))
	})

	t.Run("MultipleExtras", func(t *testing.T) {
		all, err := meta.Requires(testEnv, "test", "docs")
		require.NoError(t, err)

		assert.Equal(t, []string{"requests>=2.8.1", "pytest>=3.0", "sphinx"}, reqStrings(all))
	})
}
