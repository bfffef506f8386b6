package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	configPath string
	rawgURL    string
}

// setupCLITestEnv writes a config under a temporary HOME that points the
// library at temp directories and RAWG at a local fake.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("RAWG_API_KEY", "")
	t.Setenv("ORBIT_CLOUD_USER_ID", "")

	server := httptest.NewServer(fakeRAWG())
	t.Cleanup(server.Close)

	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "data"),
		configPath: filepath.Join(homeDir, ".config", "orbit", "config.toml"),
		rawgURL:    server.URL,
	}
	env.writeConfig(t, "test-key")
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T, apiKey string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[rawg]
api_key = %q
base_url = %q

[matching]
batch_delay_ms = 0
auto_match_on_add = true

[logging]
level = "error"
`, e.dataDir, filepath.Join(e.baseDir, "logs"), apiKey, e.rawgURL)
	if err := os.MkdirAll(filepath.Dir(e.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(e.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// fakeRAWG knows exactly one game: Hades (id 274755).
func fakeRAWG() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.EqualFold(r.URL.Query().Get("search"), "hades") {
			_, _ = w.Write([]byte(`{"count":1,"results":[{"id":274755,"slug":"hades-2","name":"Hades","released":"2020-09-17","rating":4.4,"genres":[{"id":4,"name":"Action"}]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	})
	mux.HandleFunc("/games/274755", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":274755,"slug":"hades-2","name":"Hades","released":"2020-09-17","rating":4.4,"metacritic":93,"description_raw":"Defy the god of the dead.","developers":[{"id":1,"name":"Supergiant Games"}],"genres":[{"id":4,"name":"Action"}]}`))
	})
	mux.HandleFunc("/games/274755/screenshots", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":1,"results":[{"id":1,"image":"https://img/hades.jpg"}]}`))
	})
	mux.HandleFunc("/games/274755/movies", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	})
	return mux
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
