package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile    = flag.String("log", "", "Write logs to this file")
	flagScratch    = flag.String("scratch", "", "Directory for archive extraction")
	flagCorrection = flag.String("correction", "", "Import correction preset (none, default, webgl)")
	flagMaterial   = flag.String("material", "", "Default material for imported meshes")
	flagLineAxis   = flag.Bool("line-axis", false, "Uniform scale stretches navigation lines along X only")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagScratch != "" {
		cfg.Archive.ScratchDir = *flagScratch
	}
	if *flagCorrection != "" {
		cfg.Import.Correction = *flagCorrection
	}
	if *flagMaterial != "" {
		cfg.Import.DefaultMaterial = *flagMaterial
	}
	if *flagLineAxis {
		cfg.Manipulation.LineAxisScaling = true
	}
}
