package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultConfigPath is the default path to the config file
	DefaultAppName          = "boxel-survey"
	DefaultAppCMDShortCut   = "bxs"
	DefaultEnvPrefix        = "BOXEL"
	DefaultConfigPath       = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultDataDir          = filepath.Join(DefaultConfigPath, "data")
	DefaultEmptyRegionsDir  = filepath.Join(DefaultDataDir, "emptyBoxels")
	DefaultBadgerDir        = filepath.Join(DefaultDataDir, "badger")
	DefaultRecordsDBPath    = filepath.Join(DefaultDataDir, "systems.db")
	DefaultSearchStateFile  = filepath.Join(DefaultDataDir, "boxelSearch.toml")
	DefaultGlobalConfigFile = filepath.Join(DefaultConfigPath, "config.yaml")

	// Default record store settings
	DefaultRecordsDSN = "file:" + DefaultRecordsDBPath
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// GetLevelLogger returns the process logger filtered to the named level.
// Unknown level names fall back to info.
func GetLevelLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return GetLogger().Level(lvl)
}
