package cache

// Keyer generates cache keys.
type Keyer interface {
	// DescriptorKey keys a descriptor document for a coordinate location
	// ("group:artifact:version") fetched from a repository.
	DescriptorKey(repoURL, location string) string
}

// DefaultKeyer produces plain, unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DescriptorKey returns "pom:" followed by a hash of the repository and location.
func (DefaultKeyer) DescriptorKey(repoURL, location string) string {
	return hashKey("pom", repoURL, location)
}
