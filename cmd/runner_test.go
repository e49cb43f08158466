package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/hubtwin/internal/shared"
	tu "github.com/desertthunder/hubtwin/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				ConfigPath: "custom.toml",
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.configPath != "custom.toml" {
				t.Errorf("expected configPath 'custom.toml', got %q", runner.configPath)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with empty configPath", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.configPath != "config.toml" {
				t.Errorf("expected default configPath 'config.toml', got %q", runner.configPath)
			}
			if runner.openBrowser == nil || runner.getenv == nil {
				t.Error("expected browser and environment defaults")
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("falls back to defaults when the file is missing", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
				Logger:     shared.NewLogger(&bytes.Buffer{}),
				Getenv:     func(string) string { return "" },
			})

			config, err := runner.loadConfig()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Server.Port != 443 {
				t.Errorf("expected default port 443, got %d", config.Server.Port)
			}
		})

		t.Run("reads the file and applies environment overrides", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			stored := shared.DefaultConfig()
			stored.Credentials.Twinfield.CompanyCode = "NL001"
			stored.Credentials.HubSpot.AccessToken = "from-file"
			if err := shared.SaveConfig(path, stored); err != nil {
				t.Fatalf("failed to save config: %v", err)
			}

			runner := NewRunner(RunnerOpts{
				ConfigPath: path,
				Logger:     shared.NewLogger(&bytes.Buffer{}),
				Getenv: func(key string) string {
					if key == "ACCESS_TOKEN" {
						return "from-env"
					}
					return ""
				},
			})

			config, err := runner.loadConfig()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Credentials.Twinfield.CompanyCode != "NL001" {
				t.Errorf("expected company code from file, got %q", config.Credentials.Twinfield.CompanyCode)
			}
			if config.Credentials.HubSpot.AccessToken != "from-env" {
				t.Errorf("expected environment to win, got %q", config.Credentials.HubSpot.AccessToken)
			}
		})

		t.Run("returns parse errors", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server\nport = "), 0600); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(&bytes.Buffer{})})
			if _, err := runner.loadConfig(); err == nil {
				t.Fatal("expected parse error")
			}
		})
	})

	t.Run("retryClient", func(t *testing.T) {
		t.Run("prefers the injected client", func(t *testing.T) {
			client := &http.Client{}
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), HTTPClient: client})

			if runner.retryClient() != client {
				t.Error("expected injected client")
			}
		})

		t.Run("builds a retrying client from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Logger: shared.NewLogger(&bytes.Buffer{})})

			client := runner.retryClient()
			if client == nil || client.Transport == nil {
				t.Fatal("expected a client with a retry transport")
			}
			if client.Timeout != requestTimeout {
				t.Errorf("expected timeout %v, got %v", requestTimeout, client.Timeout)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{"setup", "auth", "invoices", "sync", "ledger", "runs", "api"} {
			if !names[name] {
				t.Errorf("expected %q command to be registered", name)
			}
		}
	})

	t.Run("saveConfig", func(t *testing.T) {
		t.Run("writes the current config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "config.toml")
			config := shared.DefaultConfig()
			config.Credentials.Twinfield.AccessToken = "saved-token"
			runner := NewRunner(RunnerOpts{ConfigPath: path, Config: config})

			if err := runner.saveConfig(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			tu.AssertFileExists(t, path)
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				t.Fatalf("failed to load saved config: %v", err)
			}
			if loaded.Credentials.Twinfield.AccessToken != "saved-token" {
				t.Errorf("expected saved token, got %q", loaded.Credentials.Twinfield.AccessToken)
			}
		})

		t.Run("reports write failures", func(t *testing.T) {
			dir := t.TempDir()
			runner := NewRunner(RunnerOpts{ConfigPath: dir, Config: shared.DefaultConfig()})

			err := runner.saveConfig()
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save error, got %v", err)
			}
		})
	})
}
