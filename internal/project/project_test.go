package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fontmill.yaml"), []byte(body), 0o644))
	return dir
}

const minimalConfig = `family: Test
weights: [Regular, Bold]
designspace: sources/Test.designspace
`

func TestLoadDefaults(t *testing.T) {
	dir := writeConfig(t, minimalConfig)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "Test", cfg.Family)
	assert.Equal(t, []string{"Regular", "Bold"}, cfg.Weights)
	assert.Equal(t, "fontmake", cfg.Compiler.Command)
	assert.True(t, cfg.Compiler.OTFCheck)
	assert.Equal(t, 0.25, cfg.Compiler.TTFTolerance)
	assert.Equal(t, "woff2_compress", cfg.Webfonts.WOFF2Command)
	assert.Equal(t, "Latn", cfg.Proofs.Script)
	assert.Equal(t, "en", cfg.Proofs.Language)
	assert.Equal(t, []string{"binary/fstype", "binary/monotonic-weights"}, cfg.Validator.Exclude)
	assert.Equal(t, dir, cfg.Root)
}

func TestLoadOverrides(t *testing.T) {
	dir := writeConfig(t, minimalConfig+`
compiler:
  command: fontmake3
  ttf_tolerance: 0.5
validator:
  exclude: []
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fontmake3", cfg.Compiler.Command)
	assert.Equal(t, 0.5, cfg.Compiler.TTFTolerance)
	assert.Empty(t, cfg.Validator.Exclude)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing family", "weights: [Regular]\ndesignspace: d.designspace\n", "family must be set"},
		{"family with space", "family: My Font\nweights: [Regular]\ndesignspace: d\n", "file-name-safe"},
		{"no weights", "family: Test\ndesignspace: d\n", "at least one weight"},
		{"duplicate weight", "family: Test\nweights: [Bold, Bold]\ndesignspace: d\n", "listed twice"},
		{"missing designspace", "family: Test\nweights: [Regular]\n", "designspace must be set"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfig(t, tc.body)
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestPathHelpers(t *testing.T) {
	dir := writeConfig(t, minimalConfig)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sources", "Test-Bold.ufo"), cfg.UFOPath("Bold"))
	assert.Equal(t, filepath.Join(dir, "sources", "svgs", "bold"), cfg.SVGDir("Bold"))
	assert.Equal(t, filepath.Join(dir, "sources", "svgs", "bold.yaml"), cfg.ImportConfigPath("Bold"))
	assert.Equal(t, filepath.Join(dir, "build", "Test-Bold.otf"), cfg.BinaryPath("Bold", "otf"))
	assert.Equal(t, filepath.Join(dir, "build", "proofs", "Test-Bold-glyphs.pdf"), cfg.ProofPath("Bold", "glyphs"))
	assert.Equal(t, filepath.Join(dir, "sources", "Test.designspace"), cfg.DesignspacePath())
}

func TestInstallDirHonorsDESTDIR(t *testing.T) {
	dir := writeConfig(t, minimalConfig)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/usr/share/fonts", "test"), cfg.InstallDir())

	t.Setenv("DESTDIR", "/tmp/stage")
	assert.Equal(t, filepath.Join("/tmp/stage", "usr/share/fonts", "test"), cfg.InstallDir())
}

func TestVersion(t *testing.T) {
	dir := writeConfig(t, minimalConfig)
	cfg, err := Load(dir)
	require.NoError(t, err)

	_, err = cfg.Version()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("1.2.0\n"), 0o644))
	v, err := cfg.Version()
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v)
}
