package bridge

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openDirectory opens dir in the platform file manager.
func openDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("no directory configured")
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", dir)
	case "windows":
		cmd = exec.Command("explorer", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}

	// The opener runs detached; reap it in the background.
	go func() { _ = cmd.Wait() }()

	return nil
}
