package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"
)

// versionLayout stamps new migrations; goose orders them by this number.
const versionLayout = "20060102150405"

var sqlTemplate = template.Must(template.New("migration").Parse(`-- {{.Title}}
-- created {{.Created}}
-- +goose Up
-- +goose StatementBegin
SELECT 1;
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 1;
-- +goose StatementEnd
`))

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<slug>.sql with empty
// goose Up and Down blocks and returns its path. Migrations are plain
// postgres DDL; sqlite dev databases are built from the models instead.
func CreateSQLMigration(dir, name string) (string, error) {
	return createSQLMigration(dir, name, time.Now().UTC())
}

func createSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	file := filepath.Join(dir, now.Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%s already exists", file)
	}
	if err != nil {
		return "", fmt.Errorf("create %s: %w", file, err)
	}
	defer f.Close()

	err = sqlTemplate.Execute(f, struct{ Title, Created string }{
		Title:   strings.ReplaceAll(slug, "_", " "),
		Created: now.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", file, err)
	}
	return file, nil
}

// slugify lowercases name and joins its ASCII letter and digit runs with
// underscores, so it always matches sqlFileRe.
func slugify(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	return strings.Join(words, "_")
}
