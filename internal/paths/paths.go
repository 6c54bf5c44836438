// Package paths resolves the configuration, data and state directories.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative default directory names.
const (
	DefaultConfigDirName = ".gigboard"
	DefaultDataDirName   = ".gigboard-db"
	StateDirName         = "state"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "GIGBOARD_CONFIG_DIR"
	EnvDataDir   = "GIGBOARD_DATA_DIR"
)

// getwd is overridden in tests.
var getwd = os.Getwd

// Dirs are the resolved directories of one invocation.
type Dirs struct {
	Config string // config.yaml and .env
	Data   string // embedded row store
	State  string // local key-value files: layout, session, offline rows
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > GIGBOARD_CONFIG_DIR > $(CWD)/.gigboard.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(flag, "", EnvConfigDir, DefaultConfigDirName)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config value > GIGBOARD_DATA_DIR > $(CWD)/.gigboard-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(flag, configValue, EnvDataDir, DefaultDataDirName)
}

// StateDir returns the local state directory inside configDir.
func StateDir(configDir string) string {
	return filepath.Join(configDir, StateDirName)
}

// Resolve resolves every directory at once.
func Resolve(configFlag, dataFlag, configDataDir string) (Dirs, error) {
	cfg, err := ResolveConfigDir(configFlag)
	if err != nil {
		return Dirs{}, err
	}
	data, err := ResolveDataDir(dataFlag, configDataDir)
	if err != nil {
		return Dirs{}, err
	}
	return Dirs{Config: cfg, Data: data, State: StateDir(cfg)}, nil
}

func resolve(flag, configured, env, defaultName string) (string, error) {
	for _, v := range []string{flag, configured, os.Getenv(env)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, defaultName), nil
}
