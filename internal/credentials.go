package internal

import "strings"

// Credential names as they appear in config files, flags and env vars
const (
	KeyOpenAIAPIKey        = "openai-api-key"
	KeyPineconeAPIKey      = "pinecone-api-key"
	KeyPineconeEnvironment = "pinecone-environment"
	KeyPineconeIndexName   = "pinecone-index-name"
)

// Credentials are the four secrets required to call the backend
type Credentials struct {
	OpenAIAPIKey        string // answering-service key
	PineconeAPIKey      string // search-service key
	PineconeEnvironment string
	PineconeIndexName   string
}

// Missing returns the names of absent credentials in a stable order
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, KeyOpenAIAPIKey)
	}
	if strings.TrimSpace(c.PineconeAPIKey) == "" {
		missing = append(missing, KeyPineconeAPIKey)
	}
	if strings.TrimSpace(c.PineconeEnvironment) == "" {
		missing = append(missing, KeyPineconeEnvironment)
	}
	if strings.TrimSpace(c.PineconeIndexName) == "" {
		missing = append(missing, KeyPineconeIndexName)
	}
	return missing
}

// Complete reports whether all four credentials are present
func (c Credentials) Complete() bool {
	return len(c.Missing()) == 0
}

// CredentialSource supplies credentials from outside the controller
type CredentialSource interface {
	Get() Credentials
}

// CredentialSourceFunc adapts a function to CredentialSource
type CredentialSourceFunc func() Credentials

// Get calls f
func (f CredentialSourceFunc) Get() Credentials {
	return f()
}

// StaticCredentials is a CredentialSource returning fixed values
type StaticCredentials Credentials

// Get returns the stored credentials
func (s StaticCredentials) Get() Credentials {
	return Credentials(s)
}

// CredentialGate reads credentials from a source and checks them
type CredentialGate struct {
	source CredentialSource
}

// NewCredentialGate creates a gate over source
func NewCredentialGate(source CredentialSource) *CredentialGate {
	return &CredentialGate{source: source}
}

// Get returns the current credentials
func (g *CredentialGate) Get() Credentials {
	if g == nil || g.source == nil {
		return Credentials{}
	}
	return g.source.Get()
}

// Complete reports whether all credentials are present
func (g *CredentialGate) Complete() bool {
	return g.Get().Complete()
}

// Check returns the credentials, or a MissingCredentialsError naming
// every absent value
func (g *CredentialGate) Check() (Credentials, error) {
	creds := g.Get()
	if missing := creds.Missing(); len(missing) > 0 {
		return creds, &MissingCredentialsError{Missing: missing}
	}
	return creds, nil
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
