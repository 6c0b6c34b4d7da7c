package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Top-level buckets of a parody pattern document.
const (
	GeneralBucket  = "GENERAL"
	GameplayBucket = "GAMEPLAY_MECHANICS"
)

// LoadError reports a malformed pattern document. Loading is fatal to
// startup, so the error names the bucket and entry that failed validation.
type LoadError struct {
	Bucket string
	Detail string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid pattern document (%s): %s: %v", e.Bucket, e.Detail, e.Err)
	}
	return fmt.Sprintf("invalid pattern document (%s): %s", e.Bucket, e.Detail)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Entry pairs a trigger pattern with the tags it unlocks. Triggers are
// compiled case-insensitively at load time and immutable afterward.
type Entry struct {
	Pattern string   `json:"pattern" yaml:"pattern"`
	Tags    []string `json:"tags" yaml:"tags"`

	re *regexp.Regexp
}

// Matches reports whether the entry's trigger matches the given text.
func (e *Entry) Matches(text string) bool {
	return e.re != nil && e.re.MatchString(text)
}

// document mirrors the on-disk pattern file. Optional buckets may be absent;
// absent and empty are treated identically.
type document struct {
	CharacterSpecifics map[string][]Entry `json:"CHARACTER_SPECIFICS" yaml:"CHARACTER_SPECIFICS"`
	General            []Entry            `json:"GENERAL" yaml:"GENERAL"`
	GameplayMechanics  []Entry            `json:"GAMEPLAY_MECHANICS" yaml:"GAMEPLAY_MECHANICS"`
}

// Store holds the loaded pattern document. Read-only after Load.
type Store struct {
	characters map[string][]Entry // keyed by upper-cased character name
	general    []Entry            // GENERAL followed by GAMEPLAY_MECHANICS
}

// Load reads and parses a pattern document. The format is chosen by file
// extension: .json, or .yaml/.yml.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Bucket: "document", Detail: "cannot read " + path, Err: err}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return Parse(data, "json")
	case ".yaml", ".yml":
		return Parse(data, "yaml")
	default:
		return nil, &LoadError{Bucket: "document", Detail: "unsupported extension " + ext}
	}
}

// Parse builds a Store from raw document bytes in the given format
// ("json" or "yaml") and validates every entry.
func Parse(data []byte, format string) (*Store, error) {
	var doc document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{Bucket: "document", Detail: "malformed JSON", Err: err}
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{Bucket: "document", Detail: "malformed YAML", Err: err}
		}
	default:
		return nil, &LoadError{Bucket: "document", Detail: "unknown format " + format}
	}

	s := &Store{characters: make(map[string][]Entry)}

	for name, entries := range doc.CharacterSpecifics {
		compiled, err := compileEntries(name, entries)
		if err != nil {
			return nil, err
		}
		s.characters[strings.ToUpper(name)] = compiled
	}

	general, err := compileEntries(GeneralBucket, doc.General)
	if err != nil {
		return nil, err
	}
	gameplay, err := compileEntries(GameplayBucket, doc.GameplayMechanics)
	if err != nil {
		return nil, err
	}
	s.general = append(general, gameplay...)

	return s, nil
}

func compileEntries(bucket string, entries []Entry) ([]Entry, error) {
	compiled := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Pattern) == "" {
			return nil, &LoadError{Bucket: bucket, Detail: fmt.Sprintf("entry %d is missing a pattern", i)}
		}
		if len(e.Tags) == 0 {
			return nil, &LoadError{Bucket: bucket, Detail: fmt.Sprintf("entry %d (%q) has no tags", i, e.Pattern)}
		}
		re, err := regexp.Compile("(?i)" + e.Pattern)
		if err != nil {
			return nil, &LoadError{Bucket: bucket, Detail: fmt.Sprintf("entry %d has an invalid pattern %q", i, e.Pattern), Err: err}
		}
		e.re = re
		compiled = append(compiled, e)
	}
	return compiled, nil
}

// Characters returns the known character names, sorted.
func (s *Store) Characters() []string {
	names := make([]string, 0, len(s.characters))
	for name := range s.characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCharacter reports whether the document defines entries for the character.
func (s *Store) HasCharacter(name string) bool {
	_, ok := s.characters[strings.ToUpper(name)]
	return ok
}

// EntriesFor returns the entries for a character, falling back to the
// general bucket when the character has none of its own.
func (s *Store) EntriesFor(name string) []Entry {
	if entries, ok := s.characters[strings.ToUpper(name)]; ok && len(entries) > 0 {
		return entries
	}
	return s.general
}

// GeneralEntries returns the GENERAL and GAMEPLAY_MECHANICS entries.
func (s *Store) GeneralEntries() []Entry {
	return s.general
}

// Vibes returns up to n tags from the first general entry, used as the
// overall tone hint of the prompt.
func (s *Store) Vibes(n int) []string {
	if len(s.general) == 0 || n <= 0 {
		return nil
	}
	tags := s.general[0].Tags
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// TagsFor returns an ordered, de-duplicated list of tags for the character
// whose triggers match contextText or the character name itself, truncated
// to maxTags. At strictness below 0.5, entries that did not match still
// qualify, ranked after the matched ones.
func (s *Store) TagsFor(name, contextText string, maxTags int, strictness float64) []string {
	entries := s.EntriesFor(name)

	var matched, loose []string
	for _, e := range entries {
		if e.Matches(contextText) || e.Matches(name) {
			matched = append(matched, e.Tags...)
		} else if strictness < 0.5 {
			loose = append(loose, e.Tags...)
		}
	}

	seen := make(map[string]struct{})
	result := make([]string, 0, maxTags)
	for _, tag := range append(matched, loose...) {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
		if maxTags > 0 && len(result) >= maxTags {
			break
		}
	}
	return result
}
