package pom

// model is a project merged with its ancestors but not yet interpolated.
// Models are shared through the parent cache and never modified after
// construction.
type model struct {
	groupID    string
	artifactID string
	version    string
	packaging  string

	parentGroupID    string
	parentArtifactID string
	parentVersion    string

	props        map[string]string
	managed      []dependency // own entries first, then inherited
	dependencies []dependency
	repositories []repositoryRef
}

func newModel(p *project, parent *model) *model {
	m := &model{
		groupID:    p.GroupID,
		artifactID: p.ArtifactID,
		version:    p.Version,
		packaging:  p.Packaging,
		props:      make(map[string]string),
	}
	if p.Parent != nil {
		m.parentGroupID = p.Parent.GroupID
		m.parentArtifactID = p.Parent.ArtifactID
		m.parentVersion = p.Parent.Version
		if m.groupID == "" {
			m.groupID = p.Parent.GroupID
		}
		if m.version == "" {
			m.version = p.Parent.Version
		}
	}

	if parent != nil {
		for k, v := range parent.props {
			m.props[k] = v
		}
	}
	for k, v := range p.Properties {
		m.props[k] = v
	}

	m.managed = append(m.managed, p.Management...)
	m.dependencies = append(m.dependencies, p.Dependencies...)
	m.repositories = append(m.repositories, p.Repositories...)
	if parent == nil {
		return m
	}

	m.managed = append(m.managed, parent.managed...)
	own := make(map[string]bool, len(p.Dependencies))
	for _, d := range p.Dependencies {
		own[d.key()] = true
	}
	for _, d := range parent.dependencies {
		if !own[d.key()] {
			m.dependencies = append(m.dependencies, d)
		}
	}
	m.repositories = append(m.repositories, parent.repositories...)
	return m
}

// lookup resolves a property name against the model's built-ins, then
// its merged properties.
func (m *model) lookup(name string) (string, bool) {
	switch name {
	case "project.groupId", "pom.groupId", "groupId":
		return m.groupID, m.groupID != ""
	case "project.artifactId", "pom.artifactId", "artifactId":
		return m.artifactID, m.artifactID != ""
	case "project.version", "pom.version", "version":
		return m.version, m.version != ""
	case "project.packaging", "pom.packaging":
		if m.packaging == "" {
			return "jar", true
		}
		return m.packaging, true
	case "project.parent.groupId", "parent.groupId":
		return m.parentGroupID, m.parentGroupID != ""
	case "project.parent.artifactId", "parent.artifactId":
		return m.parentArtifactID, m.parentArtifactID != ""
	case "project.parent.version", "parent.version":
		return m.parentVersion, m.parentVersion != ""
	}
	v, ok := m.props[name]
	return v, ok
}

func (m *model) expander() func(string) string {
	return func(s string) string { return interpolate(s, m.lookup) }
}
