package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

// ErrCommandTimeout is returned when a command outlives its context deadline.
var ErrCommandTimeout = errors.New("command timed out")

// waitDelay bounds how long a killed command may hold its output pipes open.
const waitDelay = 2 * time.Second

// Executor runs shell command strings. Only stdout is returned; stderr is
// logged and attached to the error on failure.
type Executor interface {
	ExecCmd(ctx context.Context, cmdStr string, envVal []string) (string, error)
	ExecCmdWithStream(ctx context.Context, cmdStr string, envVal []string) (string, error)
}

// DefaultExecutor runs commands through the host shell.
type DefaultExecutor struct{}

// Default is the executor used by the package-level helpers. Tests replace it
// with a MockExecutor.
var Default Executor = &DefaultExecutor{}

// ExecCmd runs cmdStr through Default without a deadline.
var ExecCmd = func(cmdStr string, envVal []string) (string, error) {
	return Default.ExecCmd(context.Background(), cmdStr, envVal)
}

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

// IsCommandExist checks if a command exists on the host.
func IsCommandExist(cmd string) bool {
	output, err := ExecCmd("command -v "+cmd, nil)
	if err != nil {
		return false
	}
	return strings.TrimSpace(output) != ""
}

// Quote wraps s in single quotes for sh.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// GetFullCmdStr prefixes cmdStr with KEY=value environment assignments.
func GetFullCmdStr(cmdStr string, envVal []string) string {
	if len(envVal) == 0 {
		return cmdStr
	}
	return strings.Join(envVal, " ") + " " + cmdStr
}

func timeoutError(ctx context.Context, fullCmdStr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrCommandTimeout, fullCmdStr)
	}
	return nil
}

func (d *DefaultExecutor) ExecCmd(ctx context.Context, cmdStr string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr := GetFullCmdStr(cmdStr, envVal)
	log.Debugf("Exec: [%s]", fullCmdStr)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, getShell(), "-c", fullCmdStr)
	cmd.WaitDelay = waitDelay
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outputStr := stdout.String()
	errStr := strings.TrimSpace(stderr.String())

	if tErr := timeoutError(ctx, fullCmdStr); tErr != nil {
		return outputStr, tErr
	}
	if err != nil {
		if errStr != "" {
			log.Info(errStr)
			return outputStr, fmt.Errorf("failed to exec %s: %w: %s", fullCmdStr, err, errStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if errStr != "" {
		log.Debug(errStr)
	}
	return outputStr, nil
}

func (d *DefaultExecutor) ExecCmdWithStream(ctx context.Context, cmdStr string, envVal []string) (string, error) {
	var outputStr strings.Builder
	log := logger.Logger()

	fullCmdStr := GetFullCmdStr(cmdStr, envVal)
	log.Debugf("Exec: [%s]", fullCmdStr)

	cmd := exec.CommandContext(ctx, getShell(), "-c", fullCmdStr)
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", fullCmdStr, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", fullCmdStr, err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command %s: %w", fullCmdStr, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				outputStr.WriteString(str)
				outputStr.WriteByte('\n')
				log.Info(str)
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if str := scanner.Text(); str != "" {
				log.Info(str)
			}
		}
	}()

	wg.Wait()

	err = cmd.Wait()
	if tErr := timeoutError(ctx, fullCmdStr); tErr != nil {
		return outputStr.String(), tErr
	}
	if err != nil {
		return outputStr.String(), fmt.Errorf("failed to wait for command %s: %w", fullCmdStr, err)
	}
	return outputStr.String(), nil
}
