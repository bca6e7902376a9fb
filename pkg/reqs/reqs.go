// Package reqs implements the subset of Python requirement strings that can
// appear in bootstrap and build requirement lists: a distribution name,
// optional extras, an optional version specifier or direct URL reference and
// an optional environment marker.
package reqs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Requirement is a single parsed requirement string.
type Requirement struct {
	Name      string
	Extras    []string
	Specifier string
	URL       string
	Marker    *Marker
}

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraPattern     = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	clausePattern    = regexp.MustCompile(`^(===|==|!=|~=|<=|>=|<|>)\s*([A-Za-z0-9_.*+!-]+)$`)
	plainVersPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}(\.\*)?$`)
)

// Parse parses a requirement string like "name[extra1,extra2]>=1.0,<2; marker"
// or "name @ https://example.com/package.tar.gz".
func Parse(raw string) (*Requirement, error) {
	rest := strings.TrimSpace(raw)
	if rest == "" {
		return nil, eris.New("empty requirement")
	}

	result := Requirement{}

	if pos := indexUnquoted(rest, ';'); pos > -1 {
		markerStr := strings.TrimSpace(rest[pos+1:])
		rest = strings.TrimSpace(rest[:pos])

		marker, err := ParseMarker(markerStr)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid marker in requirement %s", raw)
		}
		result.Marker = marker
	}

	name := namePattern.FindString(rest)
	if name == "" {
		return nil, eris.Errorf("requirement %s doesn't start with a valid name", raw)
	}

	result.Name = name
	rest = strings.TrimSpace(rest[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return nil, eris.Errorf("unterminated extras in requirement %s", raw)
		}

		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if !extraPattern.MatchString(extra) {
				return nil, eris.Errorf("invalid extra %q in requirement %s", extra, raw)
			}

			result.Extras = append(result.Extras, extra)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	switch {
	case strings.HasPrefix(rest, "@"):
		result.URL = strings.TrimSpace(rest[1:])
		if result.URL == "" {
			return nil, eris.Errorf("empty URL in requirement %s", raw)
		}
	case rest != "":
		if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
			rest = strings.TrimSpace(rest[1 : len(rest)-1])
		}

		if err := checkSpecifier(rest); err != nil {
			return nil, eris.Wrapf(err, "invalid specifier in requirement %s", raw)
		}
		result.Specifier = normalizeSpecifier(rest)
	}

	return &result, nil
}

// String returns the form handed to the package installer: name, extras and
// specifier without whitespace. Markers and URLs are deliberately omitted;
// callers have to check those before the requirement reaches the installer.
func (r *Requirement) String() string {
	extras := ""
	if len(r.Extras) > 0 {
		extras = fmt.Sprintf("[%s]", strings.Join(r.Extras, ","))
	}

	return fmt.Sprintf("%s%s%s", r.Name, extras, r.Specifier)
}

// Evaluate checks the requirement's marker against the given environment.
// Requirements without a marker are always active.
func (r *Requirement) Evaluate(env Environment) (bool, error) {
	if r.Marker == nil {
		return true, nil
	}

	return r.Marker.Evaluate(env)
}

func normalizeSpecifier(spec string) string {
	clauses := strings.Split(spec, ",")
	for idx, clause := range clauses {
		clauses[idx] = strings.ReplaceAll(strings.TrimSpace(clause), " ", "")
	}

	return strings.Join(clauses, ",")
}

// checkSpecifier validates each comparison clause. Clauses that use plain
// dotted versions are additionally run through the semver constraint parser
// to catch malformed versions; anything fancier (local versions, post/dev
// releases) is only shape-checked since the installer is the one that has to
// interpret those.
func checkSpecifier(spec string) error {
	for _, clause := range strings.Split(spec, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return eris.Errorf("empty clause in specifier %q", spec)
		}

		groups := clausePattern.FindStringSubmatch(clause)
		if groups == nil {
			return eris.Errorf("invalid clause %q in specifier %q", clause, spec)
		}

		op, version := groups[1], groups[2]
		if !plainVersPattern.MatchString(version) {
			continue
		}

		constraint, ok := semverClause(op, version)
		if !ok {
			continue
		}

		if _, err := semver.NewConstraint(constraint); err != nil {
			return eris.Wrapf(err, "invalid version in clause %q", clause)
		}
	}

	return nil
}

func semverClause(op, version string) (string, bool) {
	switch op {
	case "==":
		if strings.HasSuffix(version, ".*") {
			return strings.TrimSuffix(version, ".*") + ".x", true
		}
		return "=" + version, true
	case "~=":
		return "~" + version, true
	case "<", "<=", ">", ">=":
		return op + version, true
	default:
		// != and === can't always be expressed as a semver range
		return "", false
	}
}

// indexUnquoted returns the position of the first occurrence of chr outside
// of quoted strings or -1.
func indexUnquoted(value string, chr byte) int {
	var quote byte
	for idx := 0; idx < len(value); idx++ {
		cur := value[idx]
		switch {
		case quote != 0:
			if cur == quote {
				quote = 0
			}
		case cur == '\'' || cur == '"':
			quote = cur
		case cur == chr:
			return idx
		}
	}

	return -1
}
