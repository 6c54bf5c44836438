package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCwd(t *testing.T, dir string) {
	t.Helper()
	orig := getwd
	getwd = func() (string, error) { return dir, nil }
	t.Cleanup(func() { getwd = orig })
}

func TestResolveConfigDir(t *testing.T) {
	fakeCwd(t, "/work")

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag wins", "/from/flag", "/from/env", "/from/flag"},
		{"env when no flag", "", "/from/env", "/from/env"},
		{"cwd default", "", "", filepath.Join("/work", DefaultConfigDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	fakeCwd(t, "/work")

	tests := []struct {
		name       string
		flag       string
		configured string
		env        string
		want       string
	}{
		{"flag wins", "/flag", "/cfg", "/env", "/flag"},
		{"config over env", "", "/cfg", "/env", "/cfg"},
		{"env", "", "", "/env", "/env"},
		{"cwd default", "", "", "", filepath.Join("/work", DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.configured)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelativeFlagIsMadeAbsolute(t *testing.T) {
	got, err := ResolveConfigDir("rel/dir")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestResolve(t *testing.T) {
	fakeCwd(t, "/work")
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	dirs, err := Resolve("", "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", DefaultConfigDirName), dirs.Config)
	assert.Equal(t, filepath.Join("/work", DefaultDataDirName), dirs.Data)
	assert.Equal(t, filepath.Join(dirs.Config, StateDirName), dirs.State)
}

func TestResolveCwdFailure(t *testing.T) {
	orig := getwd
	getwd = func() (string, error) { return "", errors.New("gone") }
	t.Cleanup(func() { getwd = orig })
	t.Setenv(EnvConfigDir, "")

	_, err := ResolveConfigDir("")
	assert.Error(t, err)
}
