package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations on disk before they are committed.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return validateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded runs the same checks against the compiled-in migrations.
func ValidateEmbedded() error {
	return validateFS(embedded, EmbeddedDir)
}

// validateFS reports every problem it finds, not just the first.
func validateFS(fsys fs.FS, dir string) error {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list %q: %w", dir, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	var errs error
	owner := make(map[string]string, len(names))
	for _, full := range names {
		name := path.Base(full)
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := owner[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
			continue
		}
		owner[m[1]] = name

		body, err := fs.ReadFile(fsys, full)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := checkAnnotations(body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errs
}

// checkAnnotations wants exactly one Up section followed by one Down
// section, with StatementBegin/End paired inside each.
func checkAnnotations(body []byte) error {
	var ups, downs int
	open := false
	sc := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, "-- +goose ") {
			continue
		}
		switch directive := strings.Fields(strings.TrimPrefix(text, "-- +goose "))[0]; directive {
		case "Up":
			ups++
			if downs > 0 {
				return fmt.Errorf("line %d: Up after Down", line)
			}
		case "Down":
			downs++
		case "StatementBegin":
			if open {
				return fmt.Errorf("line %d: nested StatementBegin", line)
			}
			open = true
		case "StatementEnd":
			if !open {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", line)
			}
			open = false
		}
		if open && (ups+downs) == 0 {
			return fmt.Errorf("line %d: statement block outside Up/Down", line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	switch {
	case open:
		return fmt.Errorf("unterminated StatementBegin")
	case ups != 1:
		return fmt.Errorf(`want one "-- +goose Up", found %d`, ups)
	case downs != 1:
		return fmt.Errorf(`want one "-- +goose Down", found %d`, downs)
	}
	return nil
}
