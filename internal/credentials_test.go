package internal

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCredentialsMissing(t *testing.T) {
	full := Credentials{
		OpenAIAPIKey:        "sk",
		PineconeAPIKey:      "pc",
		PineconeEnvironment: "env",
		PineconeIndexName:   "idx",
	}
	if !full.Complete() {
		t.Errorf("Complete() = false for %+v", full)
	}

	partial := full
	partial.OpenAIAPIKey = "  "
	partial.PineconeIndexName = ""
	want := []string{KeyOpenAIAPIKey, KeyPineconeIndexName}
	if got := partial.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
	if partial.Complete() {
		t.Error("Complete() = true with missing values")
	}

	if got := (Credentials{}).Missing(); len(got) != 4 {
		t.Errorf("Missing() on empty = %v, want all four", got)
	}
}

func TestCredentialGate(t *testing.T) {
	var calls int
	values := Credentials{OpenAIAPIKey: "sk"}
	gate := NewCredentialGate(CredentialSourceFunc(func() Credentials {
		calls++
		return values
	}))

	_, err := gate.Check()
	var missing *MissingCredentialsError
	if !errors.As(err, &missing) {
		t.Fatalf("Check() error = %v, want MissingCredentialsError", err)
	}
	if len(missing.Missing) != 3 {
		t.Errorf("Missing = %v, want 3 entries", missing.Missing)
	}
	if !strings.Contains(err.Error(), KeyPineconeAPIKey) {
		t.Errorf("Error() = %q, want key name", err.Error())
	}

	// the source is read on every check
	values = Credentials{OpenAIAPIKey: "sk", PineconeAPIKey: "pc", PineconeEnvironment: "env", PineconeIndexName: "idx"}
	creds, err := gate.Check()
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if creds.PineconeIndexName != "idx" {
		t.Errorf("Check() creds = %+v", creds)
	}
	if !gate.Complete() {
		t.Error("Complete() = false")
	}
	if calls < 2 {
		t.Errorf("source read %d times, want at least 2", calls)
	}
}

func TestCredentialGateNilSource(t *testing.T) {
	var gate *CredentialGate
	if gate.Complete() {
		t.Error("nil gate reported complete")
	}
	if _, err := NewCredentialGate(nil).Check(); err == nil {
		t.Error("Check() with nil source expected error")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"sk-1234567890", "*********7890"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
