package patterns

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// filePattern is the on-disk shape of an extraction pattern.
type filePattern struct {
	Name       string  `yaml:"name"`
	Regex      string  `yaml:"regex"`
	Confidence float64 `yaml:"confidence"`
}

// fileLibrary is the on-disk overlay document. Sections that are present
// replace the corresponding built-in section; absent sections keep the
// defaults.
type fileLibrary struct {
	Patterns         []filePattern     `yaml:"patterns"`
	FilenamePatterns []filePattern     `yaml:"filename_patterns"`
	Abbreviations    map[string]string `yaml:"abbreviations"`
	Stopwords        []string          `yaml:"stopwords"`
	MinNameLength    *int              `yaml:"min_name_length"`
	MaxNameLength    *int              `yaml:"max_name_length"`
	Thresholds       *Thresholds       `yaml:"thresholds"`
}

// Load returns the default library overlaid with the YAML file at path.
// An empty path returns the defaults unchanged.
func Load(path string) (*Library, error) {
	lib := Default()
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "patterns: read library file")
	}

	var f fileLibrary
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "patterns: unmarshal library file")
	}

	if len(f.Patterns) > 0 {
		lib.headerPatterns, err = compileFile(f.Patterns)
		if err != nil {
			return nil, err
		}
	}
	if len(f.FilenamePatterns) > 0 {
		lib.filenamePatterns, err = compileFile(f.FilenamePatterns)
		if err != nil {
			return nil, err
		}
	}
	if len(f.Abbreviations) > 0 {
		abbr := make(map[string]string, len(f.Abbreviations))
		for k, v := range f.Abbreviations {
			abbr[normalizeKey(k)] = v
		}
		lib.abbreviations = abbr
		lib.expansions = invert(abbr)
	}
	if len(f.Stopwords) > 0 {
		lib.stopwords = toSet(f.Stopwords)
	}
	if f.MinNameLength != nil {
		lib.MinNameLen = *f.MinNameLength
	}
	if f.MaxNameLength != nil {
		lib.MaxNameLen = *f.MaxNameLength
	}
	if f.Thresholds != nil {
		lib.Thresholds = *f.Thresholds
	}

	if err := validateLibrary(lib); err != nil {
		return nil, err
	}
	return lib, nil
}

func compileFile(raw []filePattern) ([]Pattern, error) {
	out := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, eris.Wrapf(err, "patterns: compile %q", r.Name)
		}
		if re.NumSubexp() < 1 {
			return nil, eris.Errorf("patterns: %q has no capture group", r.Name)
		}
		if r.Confidence <= 0 || r.Confidence > 1 {
			return nil, eris.Errorf("patterns: %q confidence %.2f outside (0,1]", r.Name, r.Confidence)
		}
		out = append(out, Pattern{Name: r.Name, Confidence: r.Confidence, re: re})
	}
	return out, nil
}

func validateLibrary(l *Library) error {
	if l.MinNameLen < 1 || l.MaxNameLen < l.MinNameLen {
		return eris.Errorf("patterns: invalid name length bounds [%d, %d]", l.MinNameLen, l.MaxNameLen)
	}
	t := l.Thresholds
	if !(t.Exact > t.Fuzzy && t.Fuzzy > t.Partial && t.Partial > 0 && t.Exact <= 1) {
		return eris.Errorf("patterns: thresholds must satisfy 0 < partial < fuzzy < exact <= 1, got %+v", t)
	}
	return nil
}

func normalizeKey(k string) string {
	return strings.ToUpper(strings.TrimSpace(k))
}
