package ir

// RefStatus is the terminal resolution state of a cross-reference.
type RefStatus string

const (
	RefUnresolved RefStatus = "unresolved"
	RefResolved   RefStatus = "resolved"
	RefAmbiguous  RefStatus = "ambiguous"
)

// TargetKind says what a resolved reference points at.
type TargetKind string

const (
	TargetEntity TargetKind = "entity"
	TargetPage   TargetKind = "page"
)

// SourceRef locates where a reference was written.
type SourceRef struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Page   string `json:"page,omitempty"`
	Entity string `json:"entity,omitempty"`
}

// Target is a resolved destination.
type Target struct {
	Kind          TargetKind `json:"kind"`
	QualifiedName string     `json:"qualified_name,omitempty"`
	PagePath      string     `json:"page_path"`
	Anchor        string     `json:"anchor,omitempty"`
}

// Href renders the target as a site-absolute link.
func (t Target) Href() string {
	href := "/" + t.PagePath
	if t.Anchor != "" {
		href += "#" + t.Anchor
	}
	return href
}

// CrossReference is a directed reference from an entity or narrative page
// to a target. It is created once by the resolver and never changed.
type CrossReference struct {
	Source     SourceRef `json:"source"`
	Raw        string    `json:"raw"`
	Target     string    `json:"target"`
	Fragment   string    `json:"fragment,omitempty"`
	Label      string    `json:"label,omitempty"`
	Status     RefStatus `json:"status"`
	Resolved   *Target   `json:"resolved,omitempty"`
	Candidates []string  `json:"candidates,omitempty"`
}
