package config

import "time"

// Normalize applies post-validation defaulting. It is allowed to mutate
// configuration. It MUST be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	normalizeOutput(&cfg.Main)
	normalizeOutput(&cfg.Prog)
}

func normalizeOutput(o *OutputConfig) {
	if o.Current.MaxMilliamps == 0 {
		o.Current.MaxMilliamps = 1000
	}
	if o.Current.ScalePercent == 0 {
		o.Current.ScalePercent = 100
	}
	if o.Ack.ThresholdMilliamps == 0 {
		o.Ack.ThresholdMilliamps = 60
	}
	if o.Ack.BaseSamples == 0 {
		o.Ack.BaseSamples = 10
	}
	if o.Transport.Kind == "" {
		o.Transport.Kind = TransportSimulator
	}
	if o.Transport.Kind == TransportSerial && o.Transport.Serial.TimeoutMs == 0 {
		o.Transport.Serial.TimeoutMs = int(2 * time.Second / time.Millisecond)
	}
}
