package trainer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thalesfsp/gnnsearch/internal/ctxlog"
)

// stderrTail is how many trailing stderr lines are kept for error messages.
const stderrTail = 20

// Command runs an external program once per train/validate call.
//
// Protocol:
//   - the Request is written to stdin as one JSON object
//   - the program prints the Result as a JSON object on its own line; the
//     last stdout line starting with '{' is taken as the result, every other
//     line is logged
//   - a non-zero exit status fails the call
type Command struct {
	// Path is the program to run.
	Path string

	// Args are passed after Path.
	Args []string

	// Dir is the working directory. Empty means the current one.
	Dir string

	// Env is appended to the current environment.
	Env []string
}

// NewCommand splits a command line on whitespace into a Command.
func NewCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("trainer command is empty")
	}

	return &Command{Path: fields[0], Args: fields[1:]}, nil
}

// String returns the command line.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// TrainAndValidateOneFold implements Trainer.
func (c *Command) TrainAndValidateOneFold(ctx context.Context, req Request) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode trainer request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = bytes.NewReader(payload)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open trainer stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open trainer stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start trainer %q: %w", c.String(), err)
	}

	// Drain stderr concurrently so the child never blocks on a full pipe.
	tailCh := make(chan []string, 1)
	go func() {
		tailCh <- drainStderr(stderr, func(line string) {
			logger.Debug("trainer stderr", "line", line)
		})
	}()

	resultLine, scanErr := scanStdout(stdout, func(line string) {
		logger.Debug("trainer stdout", "line", line)
	})
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}

	tail := <-tailCh
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	if waitErr != nil {
		return Result{}, fmt.Errorf("trainer %q failed: %w\n%s", c.String(), waitErr, strings.Join(tail, "\n"))
	}

	if scanErr != nil {
		return Result{}, fmt.Errorf("failed to read trainer output: %w", scanErr)
	}

	if resultLine == "" {
		return Result{}, fmt.Errorf("trainer %q printed no JSON result", c.String())
	}

	var result Result
	if err := json.Unmarshal([]byte(resultLine), &result); err != nil {
		return Result{}, fmt.Errorf("failed to decode trainer result: %w", err)
	}

	if len(result.PerEpoch) == 0 {
		return Result{}, ErrEmptyResult
	}

	return result, nil
}

// scanStdout returns the last line starting with '{'; other lines go to onLine.
func scanStdout(r io.Reader, onLine func(string)) (string, error) {
	var last string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "{") {
			last = line
			continue
		}

		if line != "" {
			onLine(line)
		}
	}

	return last, scanner.Err()
}

// drainStderr forwards every line and returns the last stderrTail of them.
// Lines end at '\n' or '\r' so progress bars are split per refresh. It reads
// r until EOF even when a line exceeds the scanner buffer.
func drainStderr(r io.Reader, onLine func(string)) []string {
	var tail []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesOrCR)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		onLine(line)

		tail = append(tail, line)
		if len(tail) > stderrTail {
			tail = tail[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		tail = append(tail, fmt.Sprintf("(stderr truncated: %v)", err))
		_, _ = io.Copy(io.Discard, r)
	}

	return tail
}

// scanLinesOrCR is bufio.ScanLines that also ends a line at a lone '\r'.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
