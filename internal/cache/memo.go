package cache

// Memo remembers one integer result together with the fingerprint of the
// request that produced it. The zero value is empty.
type Memo struct {
	key   string
	value int
	valid bool
}

// Lookup returns the memoized value when key matches the stored fingerprint
func (m *Memo) Lookup(key string) (int, bool) {
	if !m.valid || m.key != key {
		return 0, false
	}
	return m.value, true
}

// Store replaces the memo
func (m *Memo) Store(key string, value int) {
	m.key = key
	m.value = value
	m.valid = true
}

// Invalidate forgets the memoized value
func (m *Memo) Invalidate() {
	*m = Memo{}
}

// Valid reports whether a value is memoized
func (m *Memo) Valid() bool {
	return m.valid
}
