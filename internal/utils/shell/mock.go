package shell

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MockCommand is a canned response for every command matching Pattern.
// Pattern is a regular expression; an invalid one is matched as a substring.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor answers commands from a list of MockCommand, first match wins.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	executed []string
}

func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{commands: commands}
}

func (m *MockExecutor) match(cmdStr string) (MockCommand, bool) {
	for _, c := range m.commands {
		re, err := regexp.Compile(c.Pattern)
		if err == nil && re.MatchString(cmdStr) {
			return c, true
		}
		if err != nil && strings.Contains(cmdStr, c.Pattern) {
			return c, true
		}
	}
	return MockCommand{}, false
}

func (m *MockExecutor) run(ctx context.Context, cmdStr string, envVal []string) (string, error) {
	fullCmdStr := GetFullCmdStr(cmdStr, envVal)

	m.mu.Lock()
	m.executed = append(m.executed, fullCmdStr)
	m.mu.Unlock()

	if tErr := timeoutError(ctx, fullCmdStr); tErr != nil {
		return "", tErr
	}
	c, ok := m.match(fullCmdStr)
	if !ok {
		return "", fmt.Errorf("unexpected command: %s", fullCmdStr)
	}
	return c.Output, c.Error
}

func (m *MockExecutor) ExecCmd(ctx context.Context, cmdStr string, envVal []string) (string, error) {
	return m.run(ctx, cmdStr, envVal)
}

func (m *MockExecutor) ExecCmdWithStream(ctx context.Context, cmdStr string, envVal []string) (string, error) {
	return m.run(ctx, cmdStr, envVal)
}

// Executed returns every command seen so far, in order.
func (m *MockExecutor) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}
