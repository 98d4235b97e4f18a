package engine

type ApplicationConfig struct {
	// The application name, used in logs.
	Name string
	// Path of the TOML configuration file. Empty means the defaults.
	ConfigPath string
	// Reload the configuration file when it changes on disk.
	WatchConfig bool
	// Stop after this many frames, 0 runs until quit.
	MaxFrames uint64
}
