package api

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ResourceKeyHeader is the request header Drive reads resource keys from
const ResourceKeyHeader = "X-Goog-Drive-Resource-Keys"

// ResourceKeyManager remembers resource keys seen on link-shared Drive URLs.
// Files shared after the 2021 security update are only readable when the
// key travels with the request.
type ResourceKeyManager struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewResourceKeyManager creates an empty resource key manager
func NewResourceKeyManager() *ResourceKeyManager {
	return &ResourceKeyManager{keys: make(map[string]string)}
}

// AddKey records resourceKey for fileID; empty keys are ignored
func (m *ResourceKeyManager) AddKey(fileID, resourceKey string) {
	if fileID == "" || resourceKey == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[fileID] = resourceKey
}

// GetKey retrieves a resource key
func (m *ResourceKeyManager) GetKey(fileID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[fileID]
	return key, ok
}

// BuildHeader builds the X-Goog-Drive-Resource-Keys value for fileIDs with known keys
func (m *ResourceKeyManager) BuildHeader(fileIDs []string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pairs []string
	for _, id := range fileIDs {
		if key, ok := m.keys[id]; ok {
			pairs = append(pairs, id+"/"+key)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// Len returns the number of remembered keys
func (m *ResourceKeyManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// ResourceKeyFromLink returns the resourcekey query parameter of a sharing link, if any
func ResourceKeyFromLink(link string) string {
	idx := strings.IndexByte(link, '?')
	if idx < 0 {
		return ""
	}
	values, err := url.ParseQuery(link[idx+1:])
	if err != nil {
		return ""
	}
	return values.Get("resourcekey")
}
