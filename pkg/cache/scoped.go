package cache

// ScopedKeyer prefixes every key, so that several teams or repository
// setups can share one backend without collisions.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ci:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer falls back to [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) DescriptorKey(repoURL, location string) string {
	return k.prefix + k.inner.DescriptorKey(repoURL, location)
}
