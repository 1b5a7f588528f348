package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastickilla/elastickilla/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default", []string{"version"}, version.String() + "\n"},
		{"short", []string{"version", "--short"}, version.Short() + "\n"},
		{"short beats json", []string{"version", "--short", "--json"}, version.Short() + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			out, err := execute(t, "", tt.args...)

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	// Given: the version command with --json
	isolate(t)

	// When: executing it
	out, err := execute(t, "", "version", "--json")

	// Then: the output is the build info
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.GetInfo(), info)
}

func TestVersionCmd_IgnoresBrokenConfig(t *testing.T) {
	// Given: a project config that does not parse
	isolate(t)
	writeProjectConfig(t, "tokenizer: [\n")

	// When: asking for the version
	_, err := execute(t, "", "version", "--short")

	// Then: it still works
	assert.NoError(t, err)
}
