package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knakagawa/parody-engine/pkg/patterns"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <patterns.json|patterns.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &PatternValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Pattern file is valid!")
}

type PatternValidator struct {
	errors []string
}

func (v *PatternValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	store, err := patterns.Load(filename)
	if err != nil {
		var loadErr *patterns.LoadError
		if errors.As(err, &loadErr) {
			return fmt.Errorf("bucket %q: %s", loadErr.Bucket, loadErr.Detail)
		}
		return err
	}

	v.errors = nil
	v.validateStore(store)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	characters := store.Characters()
	fmt.Printf("  %d characters: %s\n", len(characters), strings.Join(characters, ", "))
	fmt.Printf("  %d general entries\n", len(store.GeneralEntries()))
	return nil
}

func (v *PatternValidator) validateStore(store *patterns.Store) {
	for _, name := range store.Characters() {
		if !isValidCharacterName(name) {
			v.addError(fmt.Sprintf("character name '%s' should be uppercase (e.g. YUKARI)", name))
		}
		for _, entry := range store.EntriesFor(name) {
			v.validateEntry(fmt.Sprintf("character %s", name), entry)
		}
	}

	for _, entry := range store.GeneralEntries() {
		v.validateEntry("GENERAL bucket", entry)
	}
}

func (v *PatternValidator) validateEntry(context string, entry patterns.Entry) {
	for _, tag := range entry.Tags {
		if !isValidTag(tag) {
			v.addError(fmt.Sprintf("%s: tag '%s' should be #lowercase_snake_case", context, tag))
		}
	}
}

func (v *PatternValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validTagRegex       = regexp.MustCompile(`^#[a-z0-9][a-z0-9_]*$`)
	validCharacterRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_ -]*$`)
)

func isValidTag(tag string) bool {
	return validTagRegex.MatchString(tag)
}

func isValidCharacterName(name string) bool {
	return validCharacterRegex.MatchString(name)
}
