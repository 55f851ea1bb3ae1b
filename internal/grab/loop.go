package grab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/andreweick/beakergrab/internal/bkr"
	"github.com/andreweick/beakergrab/internal/distro"
	"github.com/andreweick/beakergrab/internal/job"
)

// DefaultInterval is the delay between polls
const DefaultInterval = 30 * time.Second

// ErrInvalidAttempts is returned when the attempt cap is below one
var ErrInvalidAttempts = errors.New("attempts must be at least 1")

// Scheduler lists free systems and submits job files
type Scheduler interface {
	ListFree(ctx context.Context, q bkr.Query) ([]string, error)
	Submit(ctx context.Context, path string) (string, error)
}

// JobWriter persists a rendered job and returns where it was written
type JobWriter interface {
	Write(doc []byte) (string, error)
}

// Options controls what the loop requests and how often
type Options struct {
	Attempts     int
	Interval     time.Duration
	Verbose      bool
	Distro       distro.Profile
	Provisioning distro.Provisioning
	Filter       job.HostFilter
}

// Submission records one job that bkr accepted
type Submission struct {
	Host  string
	File  string
	JobID string
}

// Result summarizes a run
type Result struct {
	Polls       int
	Attempted   int
	Submissions []Submission
}

// Submitted returns how many jobs were accepted
func (r Result) Submitted() int {
	return len(r.Submissions)
}

// Loop polls for free machines and submits reservation jobs until the
// attempt cap is reached.
type Loop struct {
	opts      Options
	query     bkr.Query
	scheduler Scheduler
	writer    JobWriter
	log       *slog.Logger
	echo      io.Writer
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a loop. When opts.Verbose is set every rendered job
// document is written to echo.
func NewLoop(opts Options, scheduler Scheduler, writer JobWriter, log *slog.Logger, echo io.Writer) (*Loop, error) {
	if opts.Attempts < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidAttempts, opts.Attempts)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if echo == nil {
		echo = io.Discard
	}

	filter, err := opts.Filter.XML()
	if err != nil {
		return nil, err
	}

	return &Loop{
		opts: opts,
		query: bkr.Query{
			Arch:        opts.Filter.Arch,
			MachineType: opts.Filter.MachineType,
			XMLFilter:   filter,
		},
		scheduler: scheduler,
		writer:    writer,
		log:       log,
		echo:      echo,
		sleep:     sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run polls until the attempt cap is reached or ctx is cancelled. Cancellation
// is returned as ctx.Err(). Each host is tried at most once per run, whether
// its submission succeeded or not.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	var res Result
	tried := map[string]bool{}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		found := l.poll(ctx)
		res.Polls++

		hosts := make([]string, 0, len(found))
		for _, host := range found {
			if !tried[host] {
				hosts = append(hosts, host)
			}
		}

		if len(hosts) == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if len(found) > 0 {
				l.log.Info("no untried machines, sleeping", "free", len(found), "interval", l.opts.Interval)
			} else {
				l.log.Info("no machines, sleeping", "interval", l.opts.Interval)
			}
			if err := l.sleep(ctx, l.opts.Interval); err != nil {
				return res, err
			}
			continue
		}

		for _, host := range hosts {
			if res.Submitted() == l.opts.Attempts {
				break
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}

			if tried[host] {
				continue
			}

			tried[host] = true
			res.Attempted++
			if sub, ok := l.submit(ctx, host); ok {
				res.Submissions = append(res.Submissions, sub)
			}
		}

		if res.Submitted() >= l.opts.Attempts {
			l.log.Info("attempt cap reached", "submitted", res.Submitted(), "attempts", l.opts.Attempts)
			return res, nil
		}

		l.log.Info("attempt cap not reached, polling again",
			"submitted", res.Submitted(), "attempts", l.opts.Attempts, "interval", l.opts.Interval)
		if err := l.sleep(ctx, l.opts.Interval); err != nil {
			return res, err
		}
	}
}

// poll returns the non-blank candidates. A failed query counts as no candidates.
func (l *Loop) poll(ctx context.Context) []string {
	l.log.Info("checking for free machines", "arch", l.query.Arch, "type", l.query.MachineType)

	found, err := l.scheduler.ListFree(ctx, l.query)
	if err != nil {
		// an interrupt kills the query; Run reports it
		if ctx.Err() == nil {
			l.log.Warn("free machine query failed", "error", err)
		}
		return nil
	}

	hosts := make([]string, 0, len(found))
	for _, h := range found {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func (l *Loop) submit(ctx context.Context, host string) (Submission, bool) {
	l.log.Info("processing job for host", "host", host)

	doc, err := job.Render(job.Request{
		Host:         host,
		Arch:         l.opts.Filter.Arch,
		Distro:       l.opts.Distro,
		Provisioning: l.opts.Provisioning,
	})
	if err != nil {
		l.log.Error("job rendering failed", "host", host, "error", err)
		return Submission{}, false
	}

	path, err := l.writer.Write(doc)
	if err != nil {
		l.log.Error("job file could not be written", "host", host, "error", err)
		return Submission{}, false
	}

	if l.opts.Verbose {
		l.log.Debug("rendered job document", "host", host, "file", path)
		fmt.Fprint(l.echo, string(doc))
	}

	l.log.Info("submitting job", "host", host, "file", path)
	start := time.Now()

	jobID, err := l.scheduler.Submit(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			l.log.Error("job submission failed", "host", host, "file", path, "error", err)
		}
		return Submission{}, false
	}

	l.log.Debug("submission finished", "host", host, "started", start.Format(time.RFC3339), "duration", time.Since(start))
	l.log.Info("job submitted", "host", host, "file", path, "job", jobID)
	return Submission{Host: host, File: path, JobID: jobID}, true
}
