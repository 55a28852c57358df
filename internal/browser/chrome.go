package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/nlmcp/nlmcp/internal/config"
)

// BrowserKind identifies the type of Chromium-based browser.
type BrowserKind string

const (
	BrowserChrome   BrowserKind = "chrome"
	BrowserBrave    BrowserKind = "brave"
	BrowserEdge     BrowserKind = "edge"
	BrowserChromium BrowserKind = "chromium"
	BrowserCustom   BrowserKind = "custom"
)

// DefaultCDPPort is the debugging port the launched Chrome listens on.
const DefaultCDPPort = 9223

// BrowserExecutable is a browser binary found on the system.
type BrowserExecutable struct {
	Kind BrowserKind
	Path string
}

// RunningChrome is a Chrome process this server launched and owns.
type RunningChrome struct {
	PID         int
	Executable  *BrowserExecutable
	UserDataDir string
	CDPPort     int
	StartedAt   time.Time
	cmd         *exec.Cmd
}

// CDPURL returns the HTTP endpoint of the instance's DevTools listener.
func (r *RunningChrome) CDPURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", r.CDPPort)
}

// FindChromeExecutable locates a Chrome/Chromium-family binary. An explicit
// customPath wins; otherwise known install locations are probed per platform.
func FindChromeExecutable(customPath string) (*BrowserExecutable, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("browser executable not found: %s", customPath)
		}
		return &BrowserExecutable{Kind: BrowserCustom, Path: customPath}, nil
	}

	var exe *BrowserExecutable
	switch runtime.GOOS {
	case "darwin":
		exe = findChromeMac()
	case "linux":
		exe = findChromeLinux()
	case "windows":
		exe = findChromeWindows()
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if exe == nil {
		return nil, fmt.Errorf("no supported browser found (Chrome/Brave/Edge/Chromium)")
	}
	return exe, nil
}

// IsChromeReachable checks whether a DevTools listener answers at cdpURL.
func IsChromeReachable(cdpURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	versionURL := strings.TrimSuffix(cdpURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, "GET", versionURL, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GetChromeWebSocketURL asks a running Chrome for its CDP WebSocket URL.
func GetChromeWebSocketURL(cdpURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	versionURL := strings.TrimSuffix(cdpURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, "GET", versionURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", err
	}
	if version.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("no webSocketDebuggerUrl in response")
	}
	return version.WebSocketDebuggerURL, nil
}

// LaunchChrome starts a real Chrome with the persistent profile directory and
// a CDP debugging port, then waits for the DevTools listener to come up.
func LaunchChrome(cfg *config.Config) (*RunningChrome, error) {
	exe, err := FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return nil, err
	}

	userDataDir := cfg.Auth.ProfileDir
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user data dir: %w", err)
	}

	args := buildChromeArgs(userDataDir, DefaultCDPPort, cfg)

	cmd := exec.Command(exe.Path, args...)
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	running := &RunningChrome{
		PID:         cmd.Process.Pid,
		Executable:  exe,
		UserDataDir: userDataDir,
		CDPPort:     DefaultCDPPort,
		StartedAt:   time.Now(),
		cmd:         cmd,
	}

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if IsChromeReachable(running.CDPURL(), 500*time.Millisecond) {
			return running, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	_ = cmd.Process.Kill()
	return nil, fmt.Errorf("Chrome CDP did not start on port %d within 15s", DefaultCDPPort)
}

// StopChrome stops a launched Chrome, escalating to kill after timeout.
func StopChrome(running *RunningChrome, timeout time.Duration) error {
	if running == nil || running.cmd == nil || running.cmd.Process == nil {
		return nil
	}

	_ = running.cmd.Process.Signal(os.Interrupt)

	done := make(chan error, 1)
	go func() {
		done <- running.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return running.cmd.Process.Kill()
	}
}

func buildChromeArgs(userDataDir string, cdpPort int, cfg *config.Config) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cdpPort),
		fmt.Sprintf("--user-data-dir=%s", userDataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-component-update",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--password-store=basic",
		"--disable-blink-features=AutomationControlled",
		"--window-size=1920,1080",
	}

	if cfg.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}

	if runtime.GOOS == "linux" {
		args = append(args, "--no-sandbox", "--disable-dev-shm-usage")
	}

	// Always open a blank tab so a target exists to attach to
	args = append(args, "about:blank")

	return args
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func findChromeMac() *BrowserExecutable {
	home := os.Getenv("HOME")
	candidates := []struct {
		kind BrowserKind
		path string
	}{
		{BrowserChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
		{BrowserChrome, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
		{BrowserBrave, "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
		{BrowserEdge, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
		{BrowserChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
	}

	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}
		}
	}
	return nil
}

func findChromeLinux() *BrowserExecutable {
	candidates := []struct {
		kind BrowserKind
		path string
	}{
		{BrowserChrome, "/usr/bin/google-chrome"},
		{BrowserChrome, "/usr/bin/google-chrome-stable"},
		{BrowserBrave, "/usr/bin/brave-browser"},
		{BrowserBrave, "/snap/bin/brave"},
		{BrowserEdge, "/usr/bin/microsoft-edge"},
		{BrowserEdge, "/usr/bin/microsoft-edge-stable"},
		{BrowserChromium, "/usr/bin/chromium"},
		{BrowserChromium, "/usr/bin/chromium-browser"},
		{BrowserChromium, "/snap/bin/chromium"},
	}

	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}
		}
	}
	return nil
}

func findChromeWindows() *BrowserExecutable {
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = `C:\Program Files (x86)`
	}

	type candidate struct {
		kind BrowserKind
		path string
	}
	var candidates []candidate

	if localAppData != "" {
		candidates = append(candidates,
			candidate{BrowserChrome, filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserBrave, filepath.Join(localAppData, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
			candidate{BrowserEdge, filepath.Join(localAppData, "Microsoft", "Edge", "Application", "msedge.exe")},
		)
	}

	candidates = append(candidates,
		candidate{BrowserChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
		candidate{BrowserChrome, filepath.Join(programFilesX86, "Google", "Chrome", "Application", "chrome.exe")},
		candidate{BrowserBrave, filepath.Join(programFiles, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
		candidate{BrowserEdge, filepath.Join(programFiles, "Microsoft", "Edge", "Application", "msedge.exe")},
	)

	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}
		}
	}
	return nil
}
