// internal/targets/targets.go
//
// Target color catalogue for the puzzle generator.
//
// Responsibilities:
//   - Load the list from a file named by TARGETS_FILE, or fall back to the
//     embedded default in the assets package.
//   - Keep a name lookup for the CLI (--target teal).
//   - Supply All, Lookup, Random and Stats.
//
// File format (one target per line):
//   rrggbb display name
// Blank lines and lines starting with '#' are ignored.
//
// Initialization is run once (sync.Once).

package targets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/rgb-alchemy/assets"
	"github.com/robalobadob/rgb-alchemy/internal/color"
)

// Target is a named color a puzzle can ask for.
type Target struct {
	Name  string    `json:"name"`
	Color color.RGB `json:"color"`
}

var (
	initOnce   sync.Once
	all        []Target
	byName     map[string]Target
	initialErr error
)

// fallback is used if nothing could be loaded at all.
var fallback = Target{Name: "teal", Color: color.RGB{R: 0, G: 128, B: 128}}

// Init loads the catalogue exactly once. path overrides TARGETS_FILE when set.
// Returns an error if the list ends up empty or the file is unreadable.
func Init(path string) error {
	initOnce.Do(func() {
		if path == "" {
			path = os.Getenv("TARGETS_FILE")
		}

		var list []Target
		var err error
		if path != "" {
			list, err = readFile(path)
		} else {
			var lines []string
			lines, err = assets.TargetLines()
			if err == nil {
				list, err = parseLines(lines)
			}
		}
		if err != nil {
			initialErr = err
			return
		}
		if len(list) == 0 {
			initialErr = errors.New("targets: list is empty")
			return
		}
		all = list
		byName = make(map[string]Target, len(list))
		for _, t := range list {
			byName[strings.ToLower(t.Name)] = t
		}
	})
	return initialErr
}

func readFile(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a target list in the file format described above.
func Parse(r io.Reader) ([]Target, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		lines = append(lines, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return parseLines(lines)
}

func parseLines(lines []string) ([]Target, error) {
	out := make([]Target, 0, len(lines))
	for i, line := range lines {
		hex, name, _ := strings.Cut(line, " ")
		c, err := color.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("targets: line %d: %w", i+1, err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = c.Hex()
		}
		out = append(out, Target{Name: name, Color: c})
	}
	return out, nil
}

// All returns the loaded catalogue (or the single fallback if Init failed
// or was never called).
func All() []Target {
	if len(all) == 0 {
		return []Target{fallback}
	}
	return all
}

// Lookup finds a target by case-insensitive name.
func Lookup(name string) (Target, bool) {
	t, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Random picks a target with r.
func Random(r *rand.Rand) Target {
	list := All()
	return list[r.IntN(len(list))]
}

// Stats returns the number of loaded targets.
func Stats() int { return len(all) }
