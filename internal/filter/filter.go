// Package filter decides which observed requests are downloaded and where
// their bodies land on disk.
package filter

import (
	"strings"

	"github.com/dgnsrekt/resgrab/internal/storage"
)

// Reason explains a verdict.
type Reason string

const (
	ReasonMatched  Reason = "matched"
	ReasonNoMatch  Reason = "no_match"
	ReasonExcluded Reason = "excluded"
)

// Exclusion rejects a request URL before the search term is considered.
type Exclusion struct {
	Name  string
	Match func(requestURL string) bool
}

// Contains excludes URLs containing s anywhere.
func Contains(name, s string) Exclusion {
	return Exclusion{Name: name, Match: func(u string) bool { return strings.Contains(u, s) }}
}

// Prefix excludes URLs starting with p.
func Prefix(name, p string) Exclusion {
	return Exclusion{Name: name, Match: func(u string) bool { return strings.HasPrefix(u, p) }}
}

// Base64Exclusion keeps inlined data URIs out of the download set; they cannot
// be re-fetched as network resources.
var Base64Exclusion = Contains("base64", "base64")

// DefaultExclusions is the built-in exclusion list.
func DefaultExclusions() []Exclusion {
	return []Exclusion{Base64Exclusion}
}

// Verdict is the result of classifying one request URL.
type Verdict struct {
	Reason    Reason
	Exclusion string // set when Reason is ReasonExcluded
	FileName  string // set when Reason is ReasonMatched
}

// Matched reports whether the request should be downloaded.
func (v Verdict) Matched() bool {
	return v.Reason == ReasonMatched
}

// Classify applies exclusions in order, then the case-sensitive unanchored
// search term match. Matched verdicts carry the raw file name: everything
// after the last "/", query string included, possibly empty.
func Classify(requestURL, searchTerm string, exclusions ...Exclusion) Verdict {
	for _, ex := range exclusions {
		if ex.Match(requestURL) {
			return Verdict{Reason: ReasonExcluded, Exclusion: ex.Name}
		}
	}
	if !strings.Contains(requestURL, searchTerm) {
		return Verdict{Reason: ReasonNoMatch}
	}
	return Verdict{Reason: ReasonMatched, FileName: storage.FileNameFromURL(requestURL)}
}

// MatchedResource is a request that passed the filter, with its destination.
type MatchedResource struct {
	SourceURL       string
	FileName        string
	DestinationPath string
}

// ResourceFilter binds a search term, its exclusion list and a storage layout.
type ResourceFilter struct {
	layout     storage.Layout
	exclusions []Exclusion
}

// New builds a filter for layout. The built-in exclusions always run first;
// extra exclusions are appended in order.
func New(layout storage.Layout, extra ...Exclusion) *ResourceFilter {
	exclusions := append(DefaultExclusions(), extra...)
	return &ResourceFilter{layout: layout, exclusions: exclusions}
}

// SearchTerm returns the run's search term.
func (f *ResourceFilter) SearchTerm() string {
	return f.layout.SearchTerm
}

// Layout returns the storage layout destinations are derived from.
func (f *ResourceFilter) Layout() storage.Layout {
	return f.layout
}

// Exclusions returns the exclusion names in evaluation order.
func (f *ResourceFilter) Exclusions() []string {
	names := make([]string, 0, len(f.exclusions))
	for _, ex := range f.exclusions {
		names = append(names, ex.Name)
	}
	return names
}

// Classify returns the verdict for requestURL and, when matched, the resource
// to download.
func (f *ResourceFilter) Classify(requestURL string) (Verdict, *MatchedResource) {
	v := Classify(requestURL, f.layout.SearchTerm, f.exclusions...)
	if !v.Matched() {
		return v, nil
	}
	return v, &MatchedResource{
		SourceURL:       requestURL,
		FileName:        v.FileName,
		DestinationPath: f.layout.Path(v.FileName),
	}
}
