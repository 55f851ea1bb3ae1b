package bkr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBinary        = "bkr"
	DefaultQueryTimeout  = 2 * time.Minute
	DefaultSubmitTimeout = 2 * time.Minute
)

// CommandError reports a failed or timed out bkr invocation
type CommandError struct {
	Op      string
	Timeout bool
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("bkr %s failed: %v", e.Op, e.Err)
	if e.Timeout {
		msg = fmt.Sprintf("bkr %s timed out: %v", e.Op, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes an external command and returns its standard output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of bkr may hold the output pipes open after it is killed
	cmd.WaitDelay = 5 * time.Second
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Query selects the free systems to list
type Query struct {
	Arch        string
	MachineType string
	XMLFilter   string
}

// Args returns the list-systems command line for q
func (q Query) Args() []string {
	args := []string{"list-systems", "--free"}
	if q.Arch != "" {
		args = append(args, "--arch="+q.Arch)
	}
	if q.MachineType != "" {
		args = append(args, "--type="+q.MachineType)
	}
	if q.XMLFilter != "" {
		args = append(args, "--xml-filter="+q.XMLFilter)
	}
	return args
}

// Client drives the bkr command line tool
type Client struct {
	Binary        string
	QueryTimeout  time.Duration
	SubmitTimeout time.Duration
	Runner        Runner
}

// NewClient creates a client using the default binary and timeouts
func NewClient() *Client {
	return &Client{
		Binary:        DefaultBinary,
		QueryTimeout:  DefaultQueryTimeout,
		SubmitTimeout: DefaultSubmitTimeout,
		Runner:        ExecRunner{},
	}
}

func (c *Client) run(ctx context.Context, op string, timeout time.Duration, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stdout, stderr, err := c.Runner.Run(ctx, c.Binary, args...)
	if err != nil {
		return nil, &CommandError{
			Op:      op,
			Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Stderr:  strings.TrimSpace(string(stderr)),
			Err:     err,
		}
	}
	return stdout, nil
}

// ListFree returns the free systems matching q, in the order bkr printed them
func (c *Client) ListFree(ctx context.Context, q Query) ([]string, error) {
	out, err := c.run(ctx, "list-systems", c.QueryTimeout, q.Args()...)
	if err != nil {
		return nil, err
	}
	return ParseCandidates(out), nil
}

// Submit submits the job file at path and returns the job id bkr reported,
// or an empty string if none was printed.
func (c *Client) Submit(ctx context.Context, path string) (string, error) {
	out, err := c.run(ctx, "job-submit", c.SubmitTimeout, "job-submit", path)
	if err != nil {
		return "", err
	}
	return ParseJobID(out), nil
}

// ParseCandidates splits list-systems output into host names, dropping blank lines
func ParseCandidates(out []byte) []string {
	var hosts []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			hosts = append(hosts, line)
		}
	}
	return hosts
}

var jobIDPattern = regexp.MustCompile(`J:\d+`)

// ParseJobID extracts the first job id (J:1234) from job-submit output
func ParseJobID(out []byte) string {
	return jobIDPattern.FindString(string(out))
}
