package usage

import (
	"fmt"
	"strings"

	"github.com/j-veylop/panoptic/internal/models"
)

// ResolveCredentials selects the secrets usable with the given provider
// client. A secret qualifies when any of these hold:
//   - its category is "llm" (case-insensitive),
//   - its name contains "admin" (case-insensitive),
//   - its value starts with one of the client's key prefixes.
//
// The store pre-filters on the provider hint, so an explicitly mis-tagged
// secret never reaches this check.
func ResolveCredentials(store SecretStore, client ProviderClient) ([]models.Credential, error) {
	entries, err := store.ListByProvider(client.Tag())
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	var creds []models.Credential
	for _, entry := range entries {
		if !credentialMatches(entry, client.KeyPrefixes()) {
			continue
		}
		creds = append(creds, models.Credential{
			Name:     entry.Name,
			Value:    entry.Value,
			Provider: client.Tag(),
		})
	}
	return creds, nil
}

func credentialMatches(entry models.SecretEntry, prefixes []string) bool {
	if strings.EqualFold(entry.Category, "llm") {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Name), "admin") {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(entry.Value, prefix) {
			return true
		}
	}
	return false
}
