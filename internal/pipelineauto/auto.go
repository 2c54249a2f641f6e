// SPDX-License-Identifier: Apache-2.0

// Package pipelineauto implements dci-pipeline-auto: scanning a change
// description for "Test<name>: <args>" lines and, for every name with a
// matching section in auto.conf, running that section's templated
// command with the change's args appended.
package pipelineauto

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"
)

// testLineRE matches one "Test<name>: <args>" description line.
var testLineRE = regexp.MustCompile(`(?m)^Test(\w+):\s*(.*)$`)

// ParseDescription extracts every "Test<name>: <args>" line from a
// change description, tokenizing and shell-injection-sanitizing args.
func ParseDescription(description string) map[string][]string {
	out := map[string][]string{}
	for _, m := range testLineRE.FindAllStringSubmatch(description, -1) {
		name, rawArgs := m[1], m[2]
		out[name] = splitWords(sanitize(rawArgs))
	}
	return out
}

// sanitize strips shell metacharacters that would otherwise let a
// description line chain or pipe additional commands into the one
// auto.conf names — the args are appended to an argv, never passed to a
// shell, but description text is untrusted user input all the same.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, ";", "")
	s = strings.ReplaceAll(s, "&", "")
	s = strings.ReplaceAll(s, "|", "")
	return strings.TrimSpace(s)
}

// splitWords tokenizes s on whitespace, honoring single and double
// quoting, the same subset of shell word-splitting needed for dci-pipeline
// override arguments (no expansion, no escapes beyond quote matching).
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	var quote rune
	inWord := false
	flush := func() {
		if inWord {
			words = append(words, cur.String())
			cur.Reset()
			inWord = false
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			flush()
		default:
			inWord = true
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// Config is a loaded auto.conf: one named section per recognized test
// name, each naming a templated command.
type Config struct {
	file *ini.File
}

// DefaultConfigPath is auto.conf's conventional location.
const DefaultConfigPath = "~/.config/dci-pipeline/auto.conf"

// LoadConfig reads an auto.conf ini file. A missing file yields an empty
// Config rather than an error, since an unconfigured auto.conf simply
// means no test name will match.
func LoadConfig(path string) (*Config, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		return &Config{file: ini.Empty()}, nil
	}
	f, err := ini.Load(expanded)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", expanded, err)
	}
	return &Config{file: f}, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// Command returns the section named name's "cmd" template and whether it
// exists.
func (c *Config) Command(name string) (string, bool) {
	if !c.file.HasSection(name) {
		return "", false
	}
	key := c.file.Section(name).Key("cmd")
	if key.String() == "" {
		return "", false
	}
	return key.String(), true
}

// BuildCommand substitutes url for "@URL" in section name's command
// template, tokenizes it, and appends the description's parsed args for
// that name, or reports !ok if no section matches.
func BuildCommand(cfg *Config, name, url string, descriptionArgs []string) (argv []string, ok bool) {
	tmpl, found := cfg.Command(name)
	if !found {
		return nil, false
	}
	argv = splitWords(strings.ReplaceAll(tmpl, "@URL", url))
	argv = append(argv, descriptionArgs...)
	return argv, true
}
