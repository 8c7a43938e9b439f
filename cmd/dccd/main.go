// Command dccd runs a base-station packet-generation core: it loads a
// YAML configuration describing a MAIN and a PROG output, builds a slot
// table and waveform engine for each, and keeps the waveform engines
// running until the process is told to stop.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mattharris/dcc-core/internal/ack"
	"github.com/mattharris/dcc-core/internal/config"
	"github.com/mattharris/dcc-core/internal/core"
	"github.com/mattharris/dcc-core/internal/current"
	"github.com/mattharris/dcc-core/internal/dispatch"
	"github.com/mattharris/dcc-core/internal/service"
	"github.com/mattharris/dcc-core/internal/slot"
	"github.com/mattharris/dcc-core/internal/waveform"
	"github.com/mattharris/dcc-core/internal/waveform/serialhw"
)

// output bundles everything built for one configured DCC output.
type output struct {
	name   string
	core   *core.Core
	engine waveform.Engine
	closer func() error
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: dccd <config.yaml>")
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mainOut, err := buildOutput("main", cfg.Main)
	if err != nil {
		log.Fatalf("main output build failed: %v", err)
	}
	defer mainOut.closer()

	progOut, err := buildOutput("prog", cfg.Prog)
	if err != nil {
		log.Fatalf("prog output build failed: %v", err)
	}
	defer progOut.closer()

	progOut.core.AccessoriesReversed = cfg.Prog.AccessoriesReversed
	mainOut.core.AccessoriesReversed = cfg.Main.AccessoriesReversed

	progMonitor := current.New(zeroProbe, current.Config{
		ScalePercent: cfg.Prog.Current.ScalePercent,
		Bias:         cfg.Prog.Current.Bias,
		MaxMilliamps: cfg.Prog.Current.MaxMilliamps,
	}, nil)
	detector := ack.New(cfg.Prog.Ack.ThresholdMilliamps)
	seq := service.New(progOut.core.Table, progMonitor, detector, nil, nil)
	seq.SetBaseSamples(cfg.Prog.Ack.BaseSamples)

	d := dispatch.New(mainOut.core, seq)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runEngine(gctx, "main", mainOut.engine) })
	g.Go(func() error { return runEngine(gctx, "prog", progOut.engine) })
	g.Go(func() error { return runCommandLoop(gctx, d) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("engine failure: %v", err)
	}
}

func runEngine(ctx context.Context, name string, e waveform.Engine) error {
	log.Printf("%s: waveform engine starting", name)
	err := e.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("%s: waveform engine stopped: %v", name, err)
		return err
	}
	log.Printf("%s: waveform engine stopped", name)
	return nil
}

// runCommandLoop reads the text command surface from stdin, one command
// per line, writing each reply (when the command produces one) to
// stdout. It returns when stdin is exhausted, or on the first line read
// after ctx is cancelled; ctx is not checked while a read is blocked.
func runCommandLoop(ctx context.Context, d *dispatch.Dispatcher) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reply, ok := d.Dispatch(scanner.Text())
		if ok {
			fmt.Println(reply)
		}
	}
	return scanner.Err()
}

func buildOutput(name string, oc config.OutputConfig) (*output, error) {
	table, err := slot.NewTable(oc.SlotCapacity)
	if err != nil {
		return nil, err
	}
	c := core.New(table)

	var engine waveform.Engine
	closer := func() error { return nil }

	switch oc.Transport.Kind {
	case config.TransportSerial:
		e, err := serialhw.Open(table, serialhw.Config{
			Device:   oc.Transport.Serial.Device,
			BaudRate: oc.Transport.Serial.BaudRate,
			Timeout:  time.Duration(oc.Transport.Serial.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		engine = e
		closer = e.Close
	default:
		engine = waveform.NewSimulator(table)
	}

	return &output{name: name, core: c, engine: engine, closer: closer}, nil
}

// zeroProbe stands in for an ADC read; real deployments wire this to the
// board's current-sense pin.
func zeroProbe() int { return 0 }
