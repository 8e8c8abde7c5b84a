// Package report defines validation issues and the run report every pipeline
// execution produces, including its text/JSON renderings and persistence.
package report

import (
	"cmp"
	"slices"
)

// Severity indicates how much an issue matters for publication.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Rank orders severities: 0 is critical. Unknown values sort last.
func (s Severity) Rank() int {
	if i := slices.Index(Severities, s); i >= 0 {
		return i
	}
	return len(Severities)
}

func (s Severity) Valid() bool { return s.Rank() < len(Severities) }

// Category is the stable machine identifier of an issue kind.
type Category string

const (
	CategoryMalformedComment      Category = "extraction-malformed-comment"
	CategoryExtractionTimeout     Category = "extraction-timeout"
	CategoryUnreadableSource      Category = "extraction-unreadable-source"
	CategoryDuplicateEntity       Category = "duplicate-entity"
	CategoryDuplicatePage         Category = "duplicate-page"
	CategoryUnresolvedReference   Category = "unresolved-reference"
	CategoryUnresolvedFragment    Category = "unresolved-fragment"
	CategoryAmbiguousReference    Category = "ambiguous-reference"
	CategoryMissingNarrative      Category = "missing-narrative"
	CategoryMissingNarrativeMeta  Category = "missing-narrative-metadata"
	CategoryMissingInternalLink   Category = "missing-internal-link"
	CategoryMissingFragment       Category = "missing-fragment"
	CategoryMissingAsset          Category = "missing-asset"
	CategoryMalformedExternalLink Category = "malformed-external-link"
	CategoryUnreachableExternal   Category = "unreachable-external-link"
	CategoryValidationTimeout     Category = "validation-timeout"
	CategoryOrphanPage            Category = "orphan-page"
	CategoryMissingNavTarget      Category = "missing-navigation-target"
	CategoryNavPathMismatch       Category = "navigation-path-mismatch"
	CategoryDuplicateNavEntry     Category = "duplicate-navigation-entry"
	CategoryNavAutoPatched        Category = "navigation-auto-patched"
	CategoryStageFailure          Category = "stage-failure"
	CategoryStageTimeout          Category = "stage-timeout"
)

var defaultSeverity = map[Category]Severity{
	CategoryMalformedComment:      SeverityMedium,
	CategoryExtractionTimeout:     SeverityHigh,
	CategoryUnreadableSource:      SeverityHigh,
	CategoryDuplicateEntity:       SeverityCritical,
	CategoryDuplicatePage:         SeverityCritical,
	CategoryUnresolvedReference:   SeverityHigh,
	CategoryUnresolvedFragment:    SeverityMedium,
	CategoryAmbiguousReference:    SeverityMedium,
	CategoryMissingNarrative:      SeverityInfo,
	CategoryMissingNarrativeMeta:  SeverityHigh,
	CategoryMissingInternalLink:   SeverityCritical,
	CategoryMissingFragment:       SeverityMedium,
	CategoryMissingAsset:          SeverityCritical,
	CategoryMalformedExternalLink: SeverityLow,
	CategoryUnreachableExternal:   SeverityLow,
	CategoryValidationTimeout:     SeverityHigh,
	CategoryOrphanPage:            SeverityMedium,
	CategoryMissingNavTarget:      SeverityCritical,
	CategoryNavPathMismatch:       SeverityInfo,
	CategoryDuplicateNavEntry:     SeverityLow,
	CategoryNavAutoPatched:        SeverityInfo,
	CategoryStageFailure:          SeverityCritical,
	CategoryStageTimeout:          SeverityCritical,
}

// DefaultSeverity returns the severity an issue of category c is raised with.
func (c Category) DefaultSeverity() Severity {
	if s, ok := defaultSeverity[c]; ok {
		return s
	}
	return SeverityMedium
}

// Issue is one validation finding. Issues are plain data; stages return them
// instead of errors so a single bad input never aborts the run.
type Issue struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Page     string   `json:"page,omitempty"` // page path, no leading slash
	File     string   `json:"file,omitempty"` // source or narrative file, relative to its root
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// New creates an issue with the category's default severity.
func New(category Category, message string) Issue {
	return Issue{Severity: category.DefaultSeverity(), Category: category, Message: message}
}

func (i Issue) WithSeverity(s Severity) Issue {
	i.Severity = s
	return i
}

func (i Issue) OnPage(page string) Issue {
	i.Page = page
	return i
}

func (i Issue) At(file string, line int) Issue {
	i.File, i.Line = file, line
	return i
}

// IsCritical reports whether the issue blocks publication.
func (i Issue) IsCritical() bool { return i.Severity == SeverityCritical }

// Key identifies an issue across runs. Line numbers are left out so edits
// above an unchanged problem do not make it look new.
func (i Issue) Key() string {
	return string(i.Category) + "\x00" + i.Page + "\x00" + i.File + "\x00" + i.Message
}

// Compare orders issues by severity, page, file, line, category, message.
func Compare(a, b Issue) int {
	return cmp.Or(
		cmp.Compare(a.Severity.Rank(), b.Severity.Rank()),
		cmp.Compare(a.Page, b.Page),
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Category, b.Category),
		cmp.Compare(a.Message, b.Message),
	)
}

// Sort orders issues in place using Compare.
func Sort(issues []Issue) {
	slices.SortStableFunc(issues, Compare)
}

// ByLocation orders worker output by file then line, the merge order used
// for parallel stages before the final severity sort.
func ByLocation(a, b Issue) int {
	return cmp.Or(
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.Page, b.Page),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Category, b.Category),
		cmp.Compare(a.Message, b.Message),
	)
}
