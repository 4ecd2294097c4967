package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interactivethings/catalog-cli/internal/model"
)

func writePackageJSON(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o644))
	return dir
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.Framework
	}{
		{
			name:    "create react app",
			content: `{"name": "app", "dependencies": {"react": "^16.0.0", "react-scripts": "1.0.0"}}`,
			want:    model.FrameworkCreateReactApp,
		},
		{
			name:    "react-scripts as dev dependency",
			content: `{"devDependencies": {"react-scripts": "1.0.0"}}`,
			want:    model.FrameworkCreateReactApp,
		},
		{
			name:    "next",
			content: `{"dependencies": {"next": "^4.0.0", "react": "^16.0.0"}}`,
			want:    model.FrameworkNext,
		},
		{
			name:    "plain react",
			content: `{"dependencies": {"react": "^16.0.0"}}`,
			want:    model.FrameworkUnknown,
		},
		{
			name:    "ambiguous",
			content: `{"dependencies": {"next": "4.0.0", "react-scripts": "1.0.0"}}`,
			want:    model.FrameworkUnknown,
		},
		{
			name: "comments and trailing commas",
			content: `{
  // generated
  "dependencies": {"next": "4.0.0",},
}`,
			want: model.FrameworkNext,
		},
		{
			name:    "malformed",
			content: `{"dependencies": [`,
			want:    model.FrameworkUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePackageJSON(t, tt.content)
			got := NewDetector(dir).Detect(context.Background())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_MissingPackageJSON(t *testing.T) {
	got := NewDetector(t.TempDir()).Detect(context.Background())
	assert.Equal(t, model.FrameworkUnknown, got)
}

func TestDetect_WorkingDirectory(t *testing.T) {
	dir := writePackageJSON(t, `{"dependencies": {"react-scripts": "1.0.0"}}`)
	chdir(t, dir)

	assert.Equal(t, model.FrameworkCreateReactApp, NewDetector("").Detect(context.Background()))
}

func TestClassify_Nil(t *testing.T) {
	assert.Equal(t, model.FrameworkUnknown, Classify(nil))
}

func TestLoadPackageJSON(t *testing.T) {
	dir := writePackageJSON(t, `{"name": "docs", "devDependencies": {"react": "^18.0.0"}}`)

	pkg, err := LoadPackageJSON(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.True(t, pkg.HasDependency("react"))
	assert.False(t, pkg.HasDependency("next"))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
