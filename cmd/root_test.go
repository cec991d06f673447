package cmd

import (
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		contains string
	}{
		{
			name:     "version flag",
			args:     []string{"--version"},
			contains: "dev",
		},
		{
			name:     "help flag",
			args:     []string{"--help"},
			contains: "namespaces",
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.contains != "" && !strings.Contains(out, tt.contains) {
				t.Errorf("output should contain %q, got:\n%s", tt.contains, out)
			}
		})
	}
}

func TestRootCommand_SubcommandsRegistered(t *testing.T) {
	want := []string{"ask", "chat", "chats", "export", "healthcheck", "keys", "namespaces", "show"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	env := newTestEnv(t, map[string]any{"temperature": 0.2})

	env.mustRun(t, "keys", "status")
	if got := config.GetFloat64(keyTemperature); got != 0.2 {
		t.Errorf("temperature from file = %v, want 0.2", got)
	}
	if got := config.GetString(keyEndpoint); got != env.server.URL {
		t.Errorf("endpoint = %q, want %q", got, env.server.URL)
	}

	t.Setenv("RAGCHAT_TEMPERATURE", "0.7")
	env.mustRun(t, "keys", "status")
	if got := config.GetFloat64(keyTemperature); got != 0.7 {
		t.Errorf("temperature from env = %v, want 0.7", got)
	}

	env.mustRun(t, "--endpoint", "http://flag.example", "keys", "status")
	if got := config.GetString(keyEndpoint); got != "http://flag.example" {
		t.Errorf("endpoint from flag = %q, want flag value", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	if _, err := executeCommand(t, "--data-dir", dir, "keys", "status"); err != nil {
		t.Fatalf("keys status: %v", err)
	}
	if got := config.GetFloat64(keyTemperature); got != 0.5 {
		t.Errorf("default temperature = %v, want 0.5", got)
	}
	if got := config.GetString(keyLogLevel); got != "warn" {
		t.Errorf("default log level = %q, want warn", got)
	}
	if dataPaths.BasePath != dir {
		t.Errorf("BasePath = %q, want %q", dataPaths.BasePath, dir)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/config.yaml", "endpoint: [unterminated")

	_, err := executeCommand(t, "--data-dir", dir, "keys", "status")
	if err == nil {
		t.Fatal("expected error for malformed config file")
	}
	if !strings.Contains(err.Error(), "failed to read config") {
		t.Errorf("error = %v, want config read failure", err)
	}
}
