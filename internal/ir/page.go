package ir

// BlockType enumerates the typed content blocks of a page.
type BlockType string

const (
	BlockHeading    BlockType = "heading"
	BlockMarkdown   BlockType = "markdown"
	BlockSignature  BlockType = "signature"
	BlockParameters BlockType = "parameters"
	BlockReturns    BlockType = "returns"
	BlockExample    BlockType = "example"
	BlockCallout    BlockType = "callout"
	BlockSeeAlso    BlockType = "see-also"
)

// Block is one typed unit of page content. Only the fields relevant to
// Type are set.
type Block struct {
	Type     BlockType `json:"type"`
	Level    int       `json:"level,omitempty"`
	Text     string    `json:"text,omitempty"`
	Anchor   string    `json:"anchor,omitempty"`
	Language string    `json:"language,omitempty"`
	Caption  string    `json:"caption,omitempty"`
	Params   []Param   `json:"params,omitempty"`
	Returns  *Returns  `json:"returns,omitempty"`
	Variant  string    `json:"variant,omitempty"` // callout flavour
	Links    []string  `json:"links,omitempty"`   // rendered see-also links
}

// PageKind distinguishes generated reference pages from narrative ones.
type PageKind string

const (
	PageReference PageKind = "reference"
	PageNarrative PageKind = "narrative"
)

// PageLink is an outgoing link of a rendered page.
type PageLink struct {
	Destination string `json:"destination"`
	Line        int    `json:"line"`
	Asset       bool   `json:"asset,omitempty"`
}

// Page is one renderable output unit. Pages are rebuilt wholesale every run.
type Page struct {
	Path        string     `json:"path"`
	Kind        PageKind   `json:"kind"`
	SourceFile  string     `json:"source_file,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Entities    []string   `json:"entities,omitempty"`
	Blocks      []Block    `json:"blocks,omitempty"`
	Unlisted    bool       `json:"unlisted,omitempty"`
	Content     []byte     `json:"-"` // rendered MDX including front-matter
	BodyOffset  int        `json:"-"` // lines before the body in Content
	Links       []PageLink `json:"links,omitempty"`
	Anchors     []string   `json:"anchors,omitempty"`
}

// HasAnchor reports whether id is present on the page.
func (p *Page) HasAnchor(id string) bool {
	for _, a := range p.Anchors {
		if a == id {
			return true
		}
	}
	return false
}

// DisplayFile is the file an issue about this page should point at.
func (p *Page) DisplayFile() string {
	if p.SourceFile != "" {
		return p.SourceFile
	}
	return p.Path + ".mdx"
}

// Section headings of a generated reference page. Each heading's slug is
// an anchor of the page.
const (
	SectionOverview    = "Overview"
	SectionConstructor = "Constructor"
	SectionProperties  = "Properties"
	SectionMethods     = "Methods"
	SectionEvents      = "Events"
	SectionConstants   = "Constants"
)

// ReferenceSections lists the member sections in render order.
var ReferenceSections = []string{SectionConstructor, SectionProperties, SectionMethods, SectionEvents, SectionConstants}

// SectionFor is the reference section that lists e. Classes are the
// overview itself.
func SectionFor(e Entity) string {
	switch {
	case e.Constructor:
		return SectionConstructor
	case e.Kind == KindProperty:
		return SectionProperties
	case e.Kind == KindMethod:
		return SectionMethods
	case e.Kind == KindEvent:
		return SectionEvents
	case e.Kind == KindConstant:
		return SectionConstants
	}
	return SectionOverview
}
