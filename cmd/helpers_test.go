package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/iksnae/ragchat/internal"
	"github.com/iksnae/ragchat/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand runs rootCmd with args and returns everything written to
// its output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so runs do not leak state
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// testEnv is a data directory plus a fake backend
type testEnv struct {
	dataDir string
	server  *httptest.Server

	mu       sync.Mutex
	requests []internal.ChatRequest
	answer   string
	fail     string
}

func fullCredentialConfig() map[string]any {
	return map[string]any{
		internal.KeyOpenAIAPIKey:        "sk-test-openai",
		internal.KeyPineconeAPIKey:      "pc-test-key",
		internal.KeyPineconeEnvironment: "us-west1-gcp",
		internal.KeyPineconeIndexName:   "docs",
	}
}

// newTestEnv writes a config with the namespaces alpha and beta, complete
// credentials and the fake backend's endpoint. extra overrides entries;
// a nil value removes one.
func newTestEnv(t *testing.T, extra map[string]any) *testEnv {
	t.Helper()
	env := &testEnv{
		dataDir: testutil.CreateDataDir(t),
		answer:  "X is...",
	}
	env.server = httptest.NewServer(http.HandlerFunc(env.handle))
	t.Cleanup(env.server.Close)

	cfg := fullCredentialConfig()
	cfg["namespaces"] = []string{"alpha", "beta"}
	cfg["endpoint"] = env.server.URL
	for k, v := range extra {
		if v == nil {
			delete(cfg, k)
			continue
		}
		cfg[k] = v
	}
	testutil.CreateConfigFixture(t, env.dataDir, cfg)
	return env
}

func (e *testEnv) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/getNamespaces":
		_, _ = w.Write([]byte(`["alpha","beta"]`))
	case "/api/chat":
		var req internal.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		e.mu.Lock()
		e.requests = append(e.requests, req)
		answer, fail := e.answer, e.fail
		e.mu.Unlock()

		if fail != "" {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": fail})
			return
		}
		resp := map[string]any{"text": answer}
		if req.ReturnSourceDocuments {
			resp["sourceDocuments"] = []map[string]any{
				{"pageContent": "Section 4: X is defined as...", "metadata": map[string]string{"source": "handbook.pdf"}},
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.NotFound(w, r)
	}
}

func (e *testEnv) setFail(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = msg
}

func (e *testEnv) chatRequests() []internal.ChatRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]internal.ChatRequest(nil), e.requests...)
}

// run executes a command against the environment's data directory
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(t, append([]string{"--data-dir", e.dataDir}, args...)...)
}

// mustRun is run that fails the test on error
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// selection reads the persisted selection straight from the database
func (e *testEnv) selection(t *testing.T) internal.Selection {
	t.Helper()
	db, err := internal.OpenDatabase(dataPaths.DatabasePath)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()
	sel, err := internal.NewRegistry(db).Selection()
	if err != nil {
		t.Fatalf("Selection() error = %v", err)
	}
	return sel
}
