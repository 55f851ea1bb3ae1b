package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreweick/beakergrab/internal/bkr"
	"github.com/andreweick/beakergrab/internal/config"
	"github.com/andreweick/beakergrab/internal/distro"
	"github.com/andreweick/beakergrab/internal/grab"
	"github.com/andreweick/beakergrab/internal/job"
	"github.com/andreweick/beakergrab/internal/jobfile"
	"github.com/andreweick/beakergrab/internal/logging"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// exitWithError prints an error message and exits with the given code
func exitWithError(message string, code int) error {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(code)
	return nil // never reached
}

func newApp() *cli.App {
	// -v is taken by --verbose
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	return &cli.App{
		Name:      "beakergrab",
		Usage:     "Grab a free physical machine from Beaker",
		ArgsUsage: "<distro>",
		Description: `Polls Beaker for free bare metal x86_64 machines with more than 3 CPUs,
   11GB of RAM and 120GB of disk, and submits a reservation job for each one
   found until the attempt cap is reached. Jobs still "Queued" in the web UI
   lost the race; cancel the extras once one is running.

   Flags must come before the distro: beakergrab -n 3 rhel8`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "attempts",
				Aliases: []string{"n"},
				Value:   1,
				Usage:   "Number of jobs to submit before stopping",
				EnvVars: []string{"BEAKERGRAB_ATTEMPTS"},
			},
			&cli.BoolFlag{
				Name:    "partition",
				Aliases: []string{"p"},
				Usage:   "Request an extra /data partition",
				EnvVars: []string{"BEAKERGRAB_PARTITION"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output and every rendered job document",
				EnvVars: []string{"BEAKERGRAB_VERBOSE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Settings file (.toml or .yaml), defaults to " + config.DefaultPath + " if present",
				EnvVars: []string{"BEAKERGRAB_CONFIG"},
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Delay between polls when no machine is found",
				EnvVars: []string{"BEAKERGRAB_INTERVAL"},
			},
			&cli.StringFlag{
				Name:    "job-dir",
				Usage:   "Directory job files are written to",
				EnvVars: []string{"BEAKERGRAB_JOB_DIR"},
			},
			&cli.StringFlag{
				Name:    "bkr",
				Usage:   "Path to the bkr client",
				EnvVars: []string{"BEAKERGRAB_BKR"},
			},
		},
		Action: grabCommand,
		Commands: []*cli.Command{
			{
				Name:   "distros",
				Usage:  "List the distros that can be requested",
				Action: distrosCommand,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Exit(1)
	}
}

// overrides holds settings given on the command line or environment
type overrides struct {
	Binary   string
	JobDir   string
	Interval time.Duration
}

func applyOverrides(s config.Settings, o overrides) config.Settings {
	if o.Binary != "" {
		s.Scheduler.Binary = o.Binary
	}
	if o.JobDir != "" {
		s.Jobs.Dir = o.JobDir
	}
	if o.Interval != 0 {
		s.Poll.Interval = o.Interval.String()
	}
	return s
}

type grabRequest struct {
	Distro    string
	Attempts  int
	Partition bool
	Verbose   bool
	Settings  config.Settings
}

func grabCommand(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return exitWithError("Error: requires exactly one argument (distro). Usage: beakergrab [flags] <distro>, flags before the distro", 1)
	}

	settings, err := config.Load(ctx.String("config"))
	if err != nil {
		return exitWithError(fmt.Sprintf("Error loading settings: %v", err), 1)
	}
	settings = applyOverrides(settings, overrides{
		Binary:   ctx.String("bkr"),
		JobDir:   ctx.String("job-dir"),
		Interval: ctx.Duration("interval"),
	})

	req := grabRequest{
		Distro:    ctx.Args().Get(0),
		Attempts:  ctx.Int("attempts"),
		Partition: ctx.Bool("partition"),
		Verbose:   ctx.Bool("verbose"),
		Settings:  settings,
	}

	if _, err := runGrab(ctx.Context, ctx.App.Writer, req); err != nil {
		return exitWithError(fmt.Sprintf("Error: %v", err), 1)
	}
	return nil
}

// runGrab resolves the request and drives the loop. Interrupts end the run
// without an error.
func runGrab(ctx context.Context, out io.Writer, req grabRequest) (grab.Result, error) {
	log := logging.New(out, req.Verbose)

	profile, prov, err := distro.Resolve(req.Distro, req.Partition)
	if err != nil {
		var cfgErr *distro.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Error("invalid distro", "distro", cfgErr.Key, "valid", cfgErr.ValidKeys)
		}
		return grab.Result{}, err
	}

	durations, err := req.Settings.Validate()
	if err != nil {
		return grab.Result{}, fmt.Errorf("invalid settings: %w", err)
	}

	client := bkr.NewClient()
	client.Binary = req.Settings.Scheduler.Binary
	client.QueryTimeout = durations.QueryTimeout
	client.SubmitTimeout = durations.SubmitTimeout

	loop, err := grab.NewLoop(grab.Options{
		Attempts:     req.Attempts,
		Interval:     durations.Interval,
		Verbose:      req.Verbose,
		Distro:       profile,
		Provisioning: prov,
		Filter:       job.DefaultFilter,
	}, client, jobfile.NewWriter(req.Settings.Jobs.Dir), log, out)
	if err != nil {
		return grab.Result{}, err
	}

	log.Info("starting", "distro", profile.Name, "attempts", req.Attempts, "partition", req.Partition)

	res, err := loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("aborted", "submitted", res.Submitted())
		return res, nil
	}
	if err != nil {
		return res, err
	}

	log.Info("done", "submitted", res.Submitted(), "polls", res.Polls)
	return res, nil
}

func distrosCommand(ctx *cli.Context) error {
	if err := listDistros(ctx.App.Writer); err != nil {
		return exitWithError(fmt.Sprintf("Error listing distros: %v", err), 1)
	}
	return nil
}

func listDistros(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(distro.All()); err != nil {
		return err
	}
	return enc.Close()
}
