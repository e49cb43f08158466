package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the system browser to the specified URL.
//
// $BROWSER wins when set; otherwise the platform opener is used (macOS, Linux, Windows).
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	if custom := os.Getenv("BROWSER"); custom != "" {
		cmd = exec.Command(custom, url)
	} else {
		switch rt := getRuntime(); rt {
		case "darwin":
			cmd = exec.Command("open", url)
		case "linux", "freebsd", "openbsd":
			cmd = exec.Command("xdg-open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			return fmt.Errorf("unsupported platform: %s", rt)
		}
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	go cmd.Wait()
	return nil
}
