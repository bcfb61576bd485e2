// Package clipboard provides cross-platform clipboard support.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupported is returned when no clipboard command is available.
var ErrUnsupported = errors.New("no clipboard command available")

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// Write copies text to the system clipboard.
func Write(text string) error {
	argv, ok := command(runtime.GOOS)
	if !ok {
		return ErrUnsupported
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", argv[0], err)
	}
	return nil
}

// command picks the copy command for an operating system.
func command(goos string) ([]string, bool) {
	var candidates [][]string
	switch goos {
	case "darwin":
		candidates = [][]string{{"pbcopy"}}
	case "windows":
		return []string{"cmd", "/c", "clip"}, true
	default:
		candidates = [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
	}

	for _, argv := range candidates {
		if _, err := lookPath(argv[0]); err == nil {
			return argv, true
		}
	}
	return nil, false
}
