// Package assets embeds the default data files the server ships with:
// the target color list, the generator tuning and the SQL migrations.
package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed targets.txt tuning.yaml sql/*.sql
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// TargetLines returns the non-comment lines of the embedded target list.
func TargetLines() ([]string, error) {
	return readLines("targets.txt")
}

// TuningYAML returns the embedded default generator tuning.
func TuningYAML() ([]byte, error) {
	return FS.ReadFile("tuning.yaml")
}

// Migrations returns the embedded sql directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}
