// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".skprof"

	// DefaultDatabasePath is the session history database, relative to the home directory.
	DefaultDatabasePath = DefaultDir + "/" + "sessions.duckdb"

	// DefaultHistoryFile is the readline history file of the interactive shell.
	DefaultHistoryFile = DefaultDir + "/" + "shell_history"

	// DefaultScriptExtensions are the file extensions picked up by the script loader.
	DefaultScriptExtensions = []string{".sk"}
)
