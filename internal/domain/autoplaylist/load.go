package autoplaylist

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Parse reads one URL per line. Lines that do not start with "http" are
// ignored, as are repeats.
func Parse(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "http") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read autoplaylist")
	}
	return urls, nil
}

// Load reads the autoplaylist file at path. An empty path yields no URLs.
func Load(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open autoplaylist %s", path)
	}
	defer f.Close()
	return Parse(f)
}
