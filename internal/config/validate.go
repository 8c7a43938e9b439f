package config

import "fmt"

// Validate checks configuration correctness. It performs declarative
// validation only; it MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if err := validateOutput("main", &cfg.Main); err != nil {
		return err
	}
	if err := validateOutput("prog", &cfg.Prog); err != nil {
		return err
	}
	return nil
}

func validateOutput(name string, o *OutputConfig) error {
	if o.SlotCapacity < 1 {
		return fmt.Errorf("%s: slot_capacity must be >= 1, got %d", name, o.SlotCapacity)
	}

	if o.Current.MaxMilliamps < 0 {
		return fmt.Errorf("%s: current.max_milliamps must be >= 0, got %d", name, o.Current.MaxMilliamps)
	}
	if o.Ack.ThresholdMilliamps < 0 {
		return fmt.Errorf("%s: ack.threshold_milliamps must be >= 0, got %d", name, o.Ack.ThresholdMilliamps)
	}
	if o.Ack.BaseSamples < 0 {
		return fmt.Errorf("%s: ack.base_samples must be >= 0, got %d", name, o.Ack.BaseSamples)
	}

	switch o.Transport.Kind {
	case "", TransportSimulator:
	case TransportSerial:
		if o.Transport.Serial.Device == "" {
			return fmt.Errorf("%s: transport.serial.device is required when transport.kind is %q", name, TransportSerial)
		}
	default:
		return fmt.Errorf("%s: transport.kind %q is not one of %q, %q", name, o.Transport.Kind, TransportSimulator, TransportSerial)
	}

	return nil
}
