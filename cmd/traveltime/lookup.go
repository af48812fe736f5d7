package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	cfnats "github.com/Strob0t/TravelTime/internal/adapter/nats"
	"github.com/Strob0t/TravelTime/internal/config"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
	"github.com/Strob0t/TravelTime/internal/logger"
	"github.com/Strob0t/TravelTime/internal/port/messaging"
	"github.com/Strob0t/TravelTime/internal/service"
)

// runLookup answers one lookup through the configured stack, so the result
// is cached and served from the cache exactly like a server request. With
// --remote the lookup is sent to a running server over NATS instead.
func runLookup(args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	origin := fs.String("origin", "", "start address (required)")
	dest := fs.String("destination", "", "target address (required)")
	mode := fs.String("mode", string(lookup.ModeDriving), "travel mode: driving, walking, bicycling or transit")
	asJSON := fs.Bool("json", false, "print the raw result as JSON")
	configPath := fs.String("config", "", "path to the YAML config file")
	remote := fs.Bool("remote", false, "ask a running server over NATS instead of opening the storage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *origin == "" {
		return fmt.Errorf("--origin is required")
	}
	if *dest == "" {
		return fmt.Errorf("--destination is required")
	}

	var cliFlags config.CLIFlags
	if *configPath != "" {
		cliFlags.ConfigPath = configPath
	}
	cfg, _, err := config.LoadWithCLI(cliFlags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Logs go to stderr so stdout stays parseable.
	log, closeLog := logger.NewWithWriter(cfg.Logging, os.Stderr)
	defer closeLog.Close()
	slog.SetDefault(log)

	ctx, _ := logger.EnsureRequestID(context.Background())
	raw := lookup.Raw{
		Origin:        *origin,
		Destination:   *dest,
		TransportMode: *mode,
	}

	var res directions.Result
	if *remote {
		res, err = remoteLookup(ctx, cfg, raw)
		if err != nil {
			return err
		}
	} else {
		s, err := buildStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		res = s.lookups.GetDirection(ctx, raw)
	}

	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(*origin, *dest, *mode, res)
	if !res.OK() {
		return fmt.Errorf("lookup failed: %s", res.Status)
	}
	return nil
}

// remoteLookup sends a distance message to the server's NATS responder.
func remoteLookup(ctx context.Context, cfg *config.Config, raw lookup.Raw) (directions.Result, error) {
	if cfg.NATS.URL == "" {
		return directions.Result{}, fmt.Errorf("--remote requires nats.url")
	}
	bus, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return directions.Result{}, fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()

	data, err := json.Marshal(service.Message{Name: messaging.NameDistance, Raw: raw})
	if err != nil {
		return directions.Result{}, err
	}
	// The server bounds the upstream call by the same timeout; leave room
	// for the cache queue and the round trip.
	ctx, cancel := context.WithTimeout(ctx, 2*cfg.Directions.Timeout)
	defer cancel()
	reply, err := bus.Request(ctx, cfg.NATS.Subject, data)
	if err != nil {
		return directions.Result{}, err
	}
	return directions.Parse(reply)
}

func printResult(origin, dest, mode string, res directions.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORIGIN\tDESTINATION\tMODE\tDURATION\tCACHED\tSTATUS")

	duration := "-"
	if res.OK() {
		if d := res.LegDuration(); d.Seconds != directions.UnknownSeconds {
			duration = directions.Format(d.Seconds)
		}
	}
	status := res.Status
	if res.ErrorMessage != "" {
		status += ": " + res.ErrorMessage
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", origin, dest, mode, duration, strconv.FormatBool(res.IsCached()), status)
	_ = w.Flush()
}
