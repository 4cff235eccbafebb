package pack

import (
	"regexp"
	"strings"
)

// Selector filters the file names of a multi-file remote listing.
// Filtering is deterministic for a given listing.
type Selector interface {
	Filter(names []string) []string
}

type allSelector struct{}

func (allSelector) Filter(names []string) []string { return names }

// simpleJarSelector keeps *.jar files that are not source or API jars.
type simpleJarSelector struct{}

func (simpleJarSelector) Filter(names []string) []string {
	var out []string
	for _, n := range names {
		if !strings.HasSuffix(n, ".jar") {
			continue
		}
		if strings.HasSuffix(n, "-sources.jar") || strings.HasSuffix(n, "-api.jar") {
			continue
		}
		out = append(out, n)
	}
	return out
}

type patternSelector struct {
	re   *regexp.Regexp
	full bool
}

func (s patternSelector) Filter(names []string) []string {
	var out []string
	for _, n := range names {
		if s.full {
			if m := s.re.FindString(n); m == n {
				out = append(out, n)
			}
			continue
		}
		if s.re.MatchString(n) {
			out = append(out, n)
		}
	}
	return out
}

func defaultSelector(typ string) string {
	switch typ {
	case "github", "github-actions", "jenkins":
		return "simple-jar"
	}
	return "all"
}

func newSelector(b *AssetBlock, def string) (Selector, error) {
	if b.FileSelector != "" && b.FilePattern != "" {
		return nil, badManifest("file_selector and file_pattern are mutually exclusive")
	}
	if b.FilePattern != "" {
		re, err := regexp.Compile(b.FilePattern)
		if err != nil {
			return nil, badManifest("bad file_pattern: %v", err)
		}
		switch b.PatternMode {
		case "", "search":
			return patternSelector{re: re}, nil
		case "full":
			return patternSelector{re: re, full: true}, nil
		}
		return nil, badManifest("pattern_mode must be %q or %q", "search", "full")
	}
	name := b.FileSelector
	if name == "" {
		name = def
	}
	switch name {
	case "all":
		return allSelector{}, nil
	case "simple-jar":
		return simpleJarSelector{}, nil
	}
	return nil, badManifest("unknown file_selector %q", name)
}
