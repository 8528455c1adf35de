package utils

// KeyTracker remembers keys already seen within one scope (a page, a dealer)
type KeyTracker struct {
	seen map[string]struct{}
}

// NewKeyTracker creates an empty tracker
func NewKeyTracker() *KeyTracker {
	return &KeyTracker{seen: make(map[string]struct{})}
}

// Add returns true if the key is new, false if it was already tracked
func (t *KeyTracker) Add(key string) bool {
	if _, exists := t.seen[key]; exists {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// Has reports whether key was tracked
func (t *KeyTracker) Has(key string) bool {
	_, ok := t.seen[key]
	return ok
}

// Count returns the number of tracked keys
func (t *KeyTracker) Count() int {
	return len(t.seen)
}
