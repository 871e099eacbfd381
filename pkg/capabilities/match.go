package capabilities

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/sessionrig/pkg/config"
)

// Match selects supported target names using comma-separated glob patterns,
// e.g. "win_*,android_chrome". Results keep the sorted order of Names.
func Match(patterns string, mode config.Mode) ([]string, error) {
	var globs []glob.Glob
	for _, p := range strings.Split(patterns, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid target pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	if len(globs) == 0 {
		return nil, fmt.Errorf("no target pattern given")
	}

	var matched []string
	for _, name := range Names(mode) {
		for _, g := range globs {
			if g.Match(name) {
				matched = append(matched, name)
				break
			}
		}
	}

	if len(matched) == 0 {
		return nil, &UnsupportedTargetError{Name: patterns, Mode: mode, Known: Names(mode)}
	}
	return matched, nil
}
