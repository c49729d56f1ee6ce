package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const queryFile = `
queries:
  - id: adults
    text: |
      age >= params.minAge
      {{- if .prefix}} && name.startsWith(params.prefix){{end}}
  - id: everything
    text: "   "
`

func TestLoad(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	path := filepath.Join(t.TempDir(), "queries.yaml")
	req.NoError(os.WriteFile(path, []byte(queryFile), 0o600))

	r, err := Load(path)
	req.NoError(err)
	req.Equal([]string{"adults", "everything"}, r.IDs())

	tmpl, err := r.Lookup("adults")
	req.NoError(err)
	req.Equal("adults", tmpl.ID())

	text, err := tmpl.Render(map[string]any{"minAge": 18})
	req.NoError(err)
	req.Equal("age >= params.minAge", text)

	text, err = tmpl.Render(map[string]any{"minAge": 18, "prefix": "an"})
	req.NoError(err)
	req.Equal("age >= params.minAge && name.startsWith(params.prefix)", text)

	blank, err := r.Lookup("everything")
	req.NoError(err)
	text, err = blank.Render(nil)
	req.NoError(err)
	req.Empty(text)

	_, err = r.Lookup("missing")
	req.ErrorIs(err, ErrUnknownQuery)
}

func TestLoad_errors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		content string
		missing bool
	}{
		"missing file": {
			missing: true,
		},
		"bad yaml": {
			content: "queries: [",
		},
		"missing id": {
			content: "queries:\n  - text: a > 1\n",
		},
		"duplicate id": {
			content: "queries:\n  - id: a\n    text: x\n  - id: a\n    text: y\n",
		},
		"bad template": {
			content: "queries:\n  - id: a\n    text: \"{{if}}\"\n",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "queries.yaml")
			if !tc.missing {
				require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))
			}
			got, err := Load(path)
			require.Error(t, err)
			require.Nil(t, got)
		})
	}
}

func TestLoad_emptyPath(t *testing.T) {
	t.Parallel()
	r, err := Load("")
	require.NoError(t, err)
	require.Empty(t, r.IDs())
}
