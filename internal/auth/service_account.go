package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"golang.org/x/oauth2/google"
)

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// ReadServiceAccountKey returns the key bytes from inline JSON, falling back to keyFile
func ReadServiceAccountKey(keyFile, inlineJSON string) ([]byte, error) {
	if strings.TrimSpace(inlineJSON) != "" {
		return []byte(inlineJSON), nil
	}
	if keyFile == "" {
		return nil, utils.NewCLIError(utils.ErrCodeConfigurationMissing,
			"no service account key configured").
			WithContext("missing", []string{"serviceAccountKeyFile", "serviceAccountKeyJSON"}).
			Err()
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeConfigurationMissing, err,
			"service account key file not readable: %s", keyFile)
	}
	return data, nil
}

// ParseServiceAccountKey validates the fields every service account key must carry
func ParseServiceAccountKey(data []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid service account key type: %q", key.Type)
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("missing client_email in service account key")
	}
	if key.PrivateKey == "" {
		return nil, fmt.Errorf("missing private_key in service account key")
	}
	return &key, nil
}

// LoadServiceAccount builds credentials for scopes from a service account key.
// Tokens are fetched lazily by the returned token source.
func LoadServiceAccount(ctx context.Context, keyData []byte, scopes []string) (*google.Credentials, *ServiceAccountKey, error) {
	if len(scopes) == 0 {
		return nil, nil, fmt.Errorf("at least one scope required")
	}
	key, err := ParseServiceAccountKey(keyData)
	if err != nil {
		return nil, nil, utils.WrapAppError(utils.ErrCodeAuthRequired, err, "invalid service account key")
	}
	creds, err := google.CredentialsFromJSON(ctx, keyData, scopes...)
	if err != nil {
		return nil, nil, utils.WrapAppError(utils.ErrCodeAuthRequired, err, "failed to load service account credentials")
	}
	return creds, key, nil
}
