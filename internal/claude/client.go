package claude

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// maxScanBuffer bounds a single NDJSON line. Tool results carrying full web
// pages can run to hundreds of kilobytes.
const maxScanBuffer = 4 << 20 // 4MB

// QueryOptions controls one session submission.
type QueryOptions struct {
	Model        string
	MaxTurns     int
	AllowedTools []string
}

// StreamClient submits a prompt and yields the session's decoded stream
// units in arrival order. A yielded error is fatal to the session; Fault
// units are not.
type StreamClient interface {
	// Query starts one conversation and streams its units.
	Query(ctx context.Context, prompt string, opts QueryOptions) iter.Seq2[Unit, error]

	// Configured reports whether the underlying capability is usable.
	Configured() bool
}

// CLIClient drives the Claude Code CLI as a subprocess, decoding its
// stream-json output line by line.
type CLIClient struct {
	binary string
	apiKey string
	logger *slog.Logger
}

// NewCLIClient creates a client for the given CLI binary. The API key may be
// empty; Configured reports false in that case and Query fails fast.
func NewCLIClient(binary, apiKey string, logger *slog.Logger) *CLIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIClient{
		binary: binary,
		apiKey: apiKey,
		logger: logger,
	}
}

// Configured reports whether an API key is present.
func (c *CLIClient) Configured() bool {
	return c.apiKey != ""
}

// Query runs one CLI session and yields decoded units in arrival order.
func (c *CLIClient) Query(ctx context.Context, prompt string, opts QueryOptions) iter.Seq2[Unit, error] {
	return func(yield func(Unit, error) bool) {
		if !c.Configured() {
			yield(nil, fmt.Errorf("claude: ANTHROPIC_API_KEY is not configured"))
			return
		}

		args := []string{
			"-p", prompt,
			"--output-format", "stream-json",
			"--verbose",
			"--max-turns", strconv.Itoa(opts.MaxTurns),
			"--allowed-tools", strings.Join(opts.AllowedTools, ","),
		}
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}

		cmd := exec.CommandContext(ctx, c.binary, args...)
		cmd.Env = append(os.Environ(), "ANTHROPIC_API_KEY="+c.apiKey)

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(nil, fmt.Errorf("claude: create stdout pipe: %w", err))
			return
		}

		if err := cmd.Start(); err != nil {
			yield(nil, fmt.Errorf("claude: start %s: %w", c.binary, err))
			return
		}

		finished := false
		defer func() {
			if !finished {
				// Consumer broke out early; reap the subprocess.
				if killErr := cmd.Process.Kill(); killErr != nil {
					c.logger.Debug("failed to kill claude subprocess", "error", killErr)
				}
				_ = cmd.Wait()
			}
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), maxScanBuffer)

		for scanner.Scan() {
			unit := DecodeUnit(scanner.Bytes())
			if unit == nil {
				continue
			}
			if !yield(unit, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			finished = true
			_ = cmd.Wait()
			yield(nil, fmt.Errorf("claude: read stream: %w", err))
			return
		}

		finished = true
		if err := cmd.Wait(); err != nil {
			yield(nil, fmt.Errorf("claude: session exited: %w", err))
		}
	}
}
