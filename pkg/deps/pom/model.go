package pom

import (
	"encoding/xml"
	"strings"
)

// project is the subset of the Maven project model jarflow reads.
type project struct {
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Packaging    string          `xml:"packaging"`
	Parent       *parentRef      `xml:"parent"`
	Properties   properties      `xml:"properties"`
	Dependencies []dependency    `xml:"dependencies>dependency"`
	Management   []dependency    `xml:"dependencyManagement>dependencies>dependency"`
	Repositories []repositoryRef `xml:"repositories>repository"`
}

type parentRef struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type dependency struct {
	GroupID    string      `xml:"groupId"`
	ArtifactID string      `xml:"artifactId"`
	Version    string      `xml:"version"`
	Type       string      `xml:"type"`
	Scope      string      `xml:"scope"`
	Optional   string      `xml:"optional"`
	Exclusions []exclusion `xml:"exclusions>exclusion"`
}

func (d dependency) key() string { return d.GroupID + ":" + d.ArtifactID }

type exclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

type repositoryRef struct {
	ID  string `xml:"id"`
	URL string `xml:"url"`
}

// properties holds <properties>, whose element names are the keys.
type properties map[string]string

func (p *properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if *p == nil {
		*p = make(properties)
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			(*p)[t.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			return nil
		}
	}
}

func parse(data []byte) (*project, error) {
	var p project
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	p.trim()
	return &p, nil
}

func (p *project) trim() {
	p.GroupID = strings.TrimSpace(p.GroupID)
	p.ArtifactID = strings.TrimSpace(p.ArtifactID)
	p.Version = strings.TrimSpace(p.Version)
	p.Packaging = strings.TrimSpace(p.Packaging)
	if p.Parent != nil {
		p.Parent.GroupID = strings.TrimSpace(p.Parent.GroupID)
		p.Parent.ArtifactID = strings.TrimSpace(p.Parent.ArtifactID)
		p.Parent.Version = strings.TrimSpace(p.Parent.Version)
	}
	for _, list := range [][]dependency{p.Dependencies, p.Management} {
		for i := range list {
			d := &list[i]
			d.GroupID = strings.TrimSpace(d.GroupID)
			d.ArtifactID = strings.TrimSpace(d.ArtifactID)
			d.Version = strings.TrimSpace(d.Version)
			d.Type = strings.TrimSpace(d.Type)
			d.Scope = strings.TrimSpace(d.Scope)
			d.Optional = strings.TrimSpace(d.Optional)
		}
	}
}
