// Package config loads and validates the daemon's YAML configuration:
// per-output (MAIN, PROG) slot table sizing, current-monitor calibration,
// acknowledgement-detector tuning, and waveform transport selection.
package config

// Config is the top-level daemon configuration.
type Config struct {
	Main OutputConfig `yaml:"main"`
	Prog OutputConfig `yaml:"prog"`
}

// OutputConfig describes one DCC output (the main track or the
// programming track).
type OutputConfig struct {
	SlotCapacity        int             `yaml:"slot_capacity"`
	AccessoriesReversed bool            `yaml:"accessories_reversed"`
	Current             CurrentConfig   `yaml:"current"`
	Ack                 AckConfig       `yaml:"ack"`
	Transport           TransportConfig `yaml:"transport"`
}

// CurrentConfig calibrates an output's current-sense channel.
type CurrentConfig struct {
	ScalePercent int `yaml:"scale_percent"`
	Bias         int `yaml:"bias"`
	MaxMilliamps int `yaml:"max_milliamps"`
}

// AckConfig tunes the acknowledgement detector.
type AckConfig struct {
	ThresholdMilliamps int `yaml:"threshold_milliamps"`
	BaseSamples        int `yaml:"base_samples"`
}

// TransportConfig selects and configures the waveform engine
// implementation for an output.
type TransportConfig struct {
	Kind   string       `yaml:"kind"` // "simulator" or "serial"
	Serial SerialConfig `yaml:"serial"`
}

// SerialConfig describes the serial link to a companion board.
type SerialConfig struct {
	Device    string `yaml:"device"`
	BaudRate  int    `yaml:"baud_rate"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

const (
	TransportSimulator = "simulator"
	TransportSerial    = "serial"
)
