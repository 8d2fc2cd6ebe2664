// Package i18n loads per-language translation tables from TOML files laid out
// as {dir}/{language}/{namespace}.toml.
package i18n

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	"golang.org/x/text/language"
)

// ErrMissingLocale means a translation resource could not be loaded. It is a
// deployment defect and callers must not fall back to untranslated output.
var ErrMissingLocale = errors.New("missing locale resource")

// Table maps namespace -> key -> localized string
type Table map[string]map[string]string

// Get returns the translation for key, or key itself when it is not defined
func (t Table) Get(namespace, key string) string {
	if v, ok := t[namespace][key]; ok {
		return v
	}
	return key
}

// Add merges the file at path into namespace
func (t Table) Add(namespace, path string) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingLocale, path, err)
	}

	entries, ok := t[namespace]
	if !ok {
		entries = make(map[string]string)
		t[namespace] = entries
	}
	flatten(entries, "", tree.ToMap())
	return nil
}

// flatten turns [section] tables into "section.key" entries
func flatten(dst map[string]string, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(dst, key, val)
		case string:
			dst[key] = val
		default:
			dst[key] = fmt.Sprint(val)
		}
	}
}

// Loader resolves languages and builds tables for a request
type Loader struct {
	dir       string
	languages map[string]bool
	fallback  string

	// codes[i] is the configured code of the matcher's i-th tag
	codes   []string
	matcher language.Matcher
}

// NewLoader creates a loader for the given languages; fallback is used for
// anything not in the list
func NewLoader(dir string, languages []string, fallback string) *Loader {
	set := make(map[string]bool, len(languages))
	for _, l := range languages {
		set[l] = true
	}

	// The matcher answers with its first tag when nothing fits
	codes := []string{fallback}
	tags := []language.Tag{language.Make(fallback)}
	for _, l := range languages {
		if l == fallback {
			continue
		}
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		codes = append(codes, l)
		tags = append(tags, tag)
	}

	return &Loader{
		dir:       dir,
		languages: set,
		fallback:  fallback,
		codes:     codes,
		matcher:   language.NewMatcher(tags),
	}
}

// Languages returns the supported language codes in sorted order
func (l *Loader) Languages() []string {
	out := make([]string, 0, len(l.languages))
	for lang := range l.languages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Path returns the resource file of a namespace in a language
func (l *Loader) Path(language, namespace string) string {
	return filepath.Join(l.dir, language, namespace+".toml")
}

// Load builds a table holding the given namespaces in language
func (l *Loader) Load(language string, namespaces ...string) (Table, error) {
	t := make(Table, len(namespaces))
	for _, ns := range namespaces {
		if err := l.AddTo(t, language, ns); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddTo loads one more namespace into an existing table
func (l *Loader) AddTo(t Table, language, namespace string) error {
	if !l.languages[language] {
		return fmt.Errorf("%w: unsupported language %q", ErrMissingLocale, language)
	}
	if namespace == "" || strings.ContainsAny(namespace, `/\.`) {
		return fmt.Errorf("%w: invalid namespace %q", ErrMissingLocale, namespace)
	}
	return t.Add(namespace, l.Path(language, namespace))
}

// Negotiate picks the language for a request: an explicit choice first, then
// the Accept-Language header by quality, then the fallback
func (l *Loader) Negotiate(explicit, acceptLanguage string) string {
	if l.languages[explicit] {
		return explicit
	}

	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return l.fallback
	}

	_, index, confidence := l.matcher.Match(desired...)
	if confidence == language.No || index < 0 || index >= len(l.codes) {
		return l.fallback
	}
	return l.codes[index]
}
