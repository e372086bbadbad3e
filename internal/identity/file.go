package identity

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load populates the store from the flat-text directive file at path. It is
// tolerant of extra whitespace, trailing commas in ability lists, blank
// lines, and comment lines starting with '#' (auth.c's directive format,
// §4.1 of the spec). Load does not clear an existing store; call on a fresh
// Store to get load-only semantics.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("identity: load %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.loadDirective(line); err != nil {
			return fmt.Errorf("identity: load %s: line %d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("identity: load %s: %w", path, err)
	}
	return nil
}

func (s *Store) loadDirective(line string) error {
	fields := splitDirectiveFields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "role":
		attrs := parseAttrs(fields[1:])
		name := attrs["name"]
		abilities := SplitRoleTokens(strings.TrimSuffix(attrs["abilities"], ","))
		if _, err := s.AddRole(name, abilities); err != nil {
			return err
		}
	case "user":
		attrs := parseAttrs(fields[1:])
		if _, err := s.AddUser(attrs["name"], attrs["password"], attrs["roles"]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unrecognized directive %q", fields[0])
	}
	return nil
}

// splitDirectiveFields splits a directive line into its leading keyword and
// attribute tokens. "roles=r1 r2" must stay a single token even though it
// contains spaces meaningfully only after the '=', so we split on the first
// run of whitespace for the keyword, then hand the remainder to
// parseAttrs which understands "key=value" pairs separated by whitespace,
// with "roles=" consuming the rest of the line (role lists are
// space-separated per §4.1's user directive).
func splitDirectiveFields(line string) []string {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 1 {
		return parts
	}
	return append([]string{parts[0]}, parts[1])
}

func parseAttrs(rest []string) map[string]string {
	out := map[string]string{}
	if len(rest) == 0 {
		return out
	}
	remainder := strings.TrimSpace(rest[0])
	for remainder != "" {
		eq := strings.IndexByte(remainder, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(remainder[:eq])
		remainder = remainder[eq+1:]
		if key == "roles" {
			// roles is the last attribute on a user directive and consumes
			// the remainder of the line verbatim (space-separated role names).
			out[key] = strings.TrimSpace(remainder)
			return out
		}
		// Value runs until the next whitespace (abilities=a,b,c has no
		// embedded spaces per the writer; password has none either).
		sp := strings.IndexAny(remainder, " \t")
		var value string
		if sp < 0 {
			value = remainder
			remainder = ""
		} else {
			value = remainder[:sp]
			remainder = strings.TrimSpace(remainder[sp+1:])
		}
		out[key] = value
	}
	return out
}

// Save writes the store to path atomically: a temp file in the same
// directory is written and fsynced, then renamed over path. Readers of the
// old file observe a consistent snapshot throughout (§4.1). On failure the
// target file is left unchanged.
func (s *Store) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".identity-*.tmp")
	if err != nil {
		return fmt.Errorf("identity: save %s: create temp file: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := s.writeTo(tmp, path); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: save %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: save %s: fsync: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("identity: save %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("identity: save %s: rename: %w", path, err)
	}
	return nil
}

func (s *Store) writeTo(f *os.File, targetPath string) error {
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "#\n#   %s - Authorization data\n#\n\n", filepath.Base(targetPath))

	for _, r := range s.Roles() {
		fmt.Fprintf(w, "role name=%s abilities=", r.Name)
		for _, a := range r.Abilities {
			fmt.Fprintf(w, "%s,", a)
		}
		fmt.Fprint(w, "\n")
	}
	fmt.Fprint(w, "\n")

	for _, u := range s.Users() {
		fmt.Fprintf(w, "user name=%s password=%s roles=%s\n", u.Name, u.Password, u.Roles)
	}
	return w.Flush()
}

// AbilityListString renders an ability set deterministically, used by the
// administration CLI when displaying a computed closure.
func AbilityListString(abilities map[string]struct{}) string {
	names := make([]string, 0, len(abilities))
	for a := range abilities {
		names = append(names, a)
	}
	// Small sets; a stable textual form matters more than speed here.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return strings.Join(names, ",")
}
