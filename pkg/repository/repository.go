// Package repository models the ordered set of Maven repositories consulted
// during resolution.
//
// Repository URLs are normalized to end with "/" and compared by URL only,
// so "https://repo1.maven.org/maven2" and "https://repo1.maven.org/maven2/"
// are the same repository regardless of their display names. Order matters:
// earlier repositories are tried first.
package repository

import (
	"strings"
)

// Well-known repository URLs.
const (
	MavenCentralURL      = "https://repo1.maven.org/maven2/"
	JCenterURL           = "https://jcenter.bintray.com/"
	SonatypeSnapshotsURL = "https://oss.sonatype.org/content/repositories/snapshots/"
	JitPackURL           = "https://jitpack.io/"
)

// Repository is a Maven-layout metadata and artifact source.
type Repository struct {
	URL  string `json:"url" toml:"url" yaml:"url"`
	Name string `json:"name,omitempty" toml:"name" yaml:"name,omitempty"`
}

// New returns a repository with its URL normalized.
func New(url, name string) Repository {
	return Repository{URL: Normalize(url), Name: name}
}

// Normalize trims surrounding whitespace and guarantees a trailing "/".
func Normalize(url string) string {
	url = strings.TrimSpace(url)
	if url != "" && !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url
}

// DisplayName returns the name, or the URL when the name is empty.
func (r Repository) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.URL
}

func (r Repository) String() string { return r.DisplayName() }

// MavenCentral returns the Maven Central repository.
func MavenCentral() Repository { return New(MavenCentralURL, "central") }

// JCenter returns the JCenter repository (read-only mirror).
func JCenter() Repository { return New(JCenterURL, "jcenter") }

// SonatypeSnapshots returns the Sonatype OSS snapshots repository.
func SonatypeSnapshots() Repository { return New(SonatypeSnapshotsURL, "sonatype-snapshots") }

// JitPack returns the JitPack repository.
func JitPack() Repository { return New(JitPackURL, "jitpack") }

// Lookup returns a well-known repository by its short name.
func Lookup(name string) (Repository, bool) {
	switch strings.ToLower(name) {
	case "central", "maven", "mavencentral":
		return MavenCentral(), true
	case "jcenter":
		return JCenter(), true
	case "sonatype", "sonatype-snapshots":
		return SonatypeSnapshots(), true
	case "jitpack":
		return JitPack(), true
	}
	return Repository{}, false
}

// Merge concatenates the given lists, normalizes every URL and drops
// repositories whose URL was already seen. The first occurrence wins, so
// repositories closer to the start keep their lookup priority. Entries
// with an empty URL are skipped. The inputs are not modified.
func Merge(lists ...[]Repository) []Repository {
	var (
		out  []Repository
		seen = make(map[string]bool)
	)
	for _, list := range lists {
		for _, r := range list {
			r.URL = Normalize(r.URL)
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}
	return out
}
