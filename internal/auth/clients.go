package auth

import (
	"fmt"
	"strings"

	"github.com/opsdesk/sla-service/internal/domain"
)

// ParseClients reads a comma separated list of id:bcrypt-hash:role entries.
// Roles are case-insensitive.
func ParseClients(raw string) ([]domain.APIClient, error) {
	var clients []domain.APIClient
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid client entry %q: want id:hash:role", entry)
		}
		role := domain.ClientRole(strings.ToUpper(parts[2]))
		if !role.Valid() {
			return nil, fmt.Errorf("client %q: unknown role %q", parts[0], parts[2])
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("client %q listed twice", parts[0])
		}
		seen[parts[0]] = true
		clients = append(clients, domain.APIClient{ID: parts[0], SecretHash: parts[1], Role: role})
	}
	return clients, nil
}
