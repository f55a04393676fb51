package domain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// commentPrefix marks lines ignored in domain list files.
const commentPrefix = "#"

// List is the parsed, de-duplicated content of a domain list file.
type List struct {
	// Domains holds normalized names in first-seen order.
	Domains []string
	// Duplicates counts lines that normalized to an already-seen name.
	Duplicates int
	// Invalid holds raw lines that could not be normalized.
	Invalid []string
}

// ReadList parses newline-delimited domains from r. Blank and comment lines are ignored.
func ReadList(r io.Reader) (*List, error) {
	list := &List{Domains: make([]string, 0)}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		name, err := Normalize(line)
		if err != nil {
			list.Invalid = append(list.Invalid, line)
			continue
		}

		if _, dup := seen[name]; dup {
			list.Duplicates++
			continue
		}
		seen[name] = struct{}{}
		list.Domains = append(list.Domains, name)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan domain list: %w", err)
	}
	return list, nil
}

// LoadList opens path and parses it with ReadList.
func LoadList(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain list %s: %w", path, err)
	}
	defer f.Close()

	return ReadList(f)
}
