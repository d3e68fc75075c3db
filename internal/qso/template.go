// internal/qso/template.go
// Package qso runs scripted, turn-based conversations with a virtual station.
package qso

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed templates.toml
var defaultTemplates string

var (
	// ErrUnknownStyle indicates the requested conversation style does not exist
	ErrUnknownStyle = errors.New("unknown conversation style")
	// ErrInvalidLibrary indicates template data failed validation
	ErrInvalidLibrary = errors.New("invalid template library")
)

// Role is the part a station plays in a conversation.
type Role string

const (
	// Caller sends the CQ
	Caller Role = "caller"
	// Answerer replies to the CQ
	Answerer Role = "answerer"
)

// Step is one transmission in a conversation template.
type Step struct {
	Name     string   `toml:"name"`
	Role     Role     `toml:"role"`
	Text     string   `toml:"text"`
	Required []string `toml:"required"`
}

// Style is an ordered conversation template.
type Style struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Steps       []Step `toml:"step"`
}

// StationPool is the reference data virtual stations are drawn from.
type StationPool struct {
	Prefixes  []string `toml:"prefixes"`
	Names     []string `toml:"names"`
	Locations []string `toml:"locations"`
	Reports   []string `toml:"reports"`
}

// Library holds every style plus the station pool. Read-only once loaded.
type Library struct {
	Stations StationPool `toml:"stations"`
	Styles   []Style     `toml:"style"`
}

// DefaultLibrary returns the built-in templates.
func DefaultLibrary() (*Library, error) {
	return LoadLibrary(strings.NewReader(defaultTemplates))
}

// LoadLibraryFile reads templates from a TOML file.
func LoadLibraryFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return LoadLibrary(f)
}

// LoadLibrary decodes and validates TOML template data.
func LoadLibrary(r io.Reader) (*Library, error) {
	var lib Library
	meta, err := toml.NewDecoder(r).Decode(&lib)
	if err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidLibrary, undecoded[0].String())
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks that every style is playable.
func (l *Library) Validate() error {
	var errs []error

	if len(l.Styles) == 0 {
		errs = append(errs, errors.New("no styles defined"))
	}
	if len(l.Stations.Prefixes) == 0 {
		errs = append(errs, errors.New("stations.prefixes is empty"))
	}
	if len(l.Stations.Names) == 0 {
		errs = append(errs, errors.New("stations.names is empty"))
	}
	if len(l.Stations.Locations) == 0 {
		errs = append(errs, errors.New("stations.locations is empty"))
	}
	if len(l.Stations.Reports) == 0 {
		errs = append(errs, errors.New("stations.reports is empty"))
	}

	seen := make(map[string]bool, len(l.Styles))
	for _, s := range l.Styles {
		if s.Name == "" {
			errs = append(errs, errors.New("style without a name"))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("style %q defined twice", s.Name))
		}
		seen[s.Name] = true
		if len(s.Steps) == 0 {
			errs = append(errs, fmt.Errorf("style %q has no steps", s.Name))
		}
		for i, st := range s.Steps {
			if st.Role != Caller && st.Role != Answerer {
				errs = append(errs, fmt.Errorf("style %q step %d: role must be caller or answerer, got %q", s.Name, i, st.Role))
			}
			if strings.TrimSpace(st.Text) == "" {
				errs = append(errs, fmt.Errorf("style %q step %d: empty text", s.Name, i))
			}
			if st.Name == "" || st.Name == string(PhaseIdle) || st.Name == string(PhaseCompleted) {
				errs = append(errs, fmt.Errorf("style %q step %d: invalid name %q", s.Name, i, st.Name))
			}
			for _, req := range st.Required {
				for _, ph := range placeholdersIn(req) {
					if !knownPlaceholders[ph] {
						errs = append(errs, fmt.Errorf("style %q step %d: unknown placeholder %s in required", s.Name, i, ph))
					}
				}
			}
		}
		for _, ph := range s.Placeholders() {
			if !knownPlaceholders[ph] {
				errs = append(errs, fmt.Errorf("style %q: unknown placeholder %s", s.Name, ph))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidLibrary, errors.Join(errs...))
	}
	return nil
}

// Style returns the named style.
func (l *Library) Style(name string) (Style, error) {
	for _, s := range l.Styles {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// StyleNames lists the style names in template order.
func (l *Library) StyleNames() []string {
	names := make([]string, len(l.Styles))
	for i, s := range l.Styles {
		names[i] = s.Name
	}
	return names
}

// Vars are the values substituted into a step, seen from its sender.
type Vars struct {
	MyCall string
	MyName string
	MyQTH  string
	UrCall string
	UrName string
	RST    string
}

func (v Vars) replacer() *strings.Replacer {
	return strings.NewReplacer(
		"{MYCALL}", v.MyCall,
		"{MYNAME}", v.MyName,
		"{MYQTH}", v.MyQTH,
		"{URCALL}", v.UrCall,
		"{URNAME}", v.UrName,
		"{RST}", v.RST,
	)
}

// Render resolves the step text.
func (s Step) Render(v Vars) string {
	return normalizeText(v.replacer().Replace(s.Text))
}

// RequiredTokens resolves the required tokens. A step without an explicit
// list requires every token of its text.
func (s Step) RequiredTokens(v Vars) []string {
	if len(s.Required) == 0 {
		return tokens(s.Render(v))
	}
	r := v.replacer()
	out := make([]string, 0, len(s.Required))
	for _, req := range s.Required {
		out = append(out, tokens(r.Replace(req))...)
	}
	return out
}

// Placeholders lists the placeholders a style's text uses, sorted.
func (s Style) Placeholders() []string {
	set := map[string]bool{}
	for _, st := range s.Steps {
		for _, ph := range placeholdersIn(st.Text) {
			set[ph] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

var knownPlaceholders = map[string]bool{
	"{MYCALL}": true,
	"{MYNAME}": true,
	"{MYQTH}":  true,
	"{URCALL}": true,
	"{URNAME}": true,
	"{RST}":    true,
}

func placeholdersIn(text string) []string {
	var out []string
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			return out
		}
		end := strings.IndexByte(text[open:], '}')
		if end < 0 {
			return out
		}
		out = append(out, text[open:open+end+1])
		text = text[open+end+1:]
	}
}
