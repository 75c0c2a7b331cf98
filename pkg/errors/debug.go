package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error: never sent to clients.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`

	Chain []string `json:"chain,omitempty"`

	// Driver holds "pgx", "pq" or "sqlite" when a database error is found.
	Driver       string `json:"driver,omitempty"`
	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Fields flattens the dump for structured logging, dropping empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("error_code", string(d.Code))
	put("db_driver", d.Driver)
	put("pg_code", d.PGCode)
	put("pg_constraint", d.PGConstraint)
	put("pg_table", d.PGTable)
	put("pg_column", d.PGColumn)
	put("pg_detail", d.PGDetail)
	put("pg_message", d.PGMessage)
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if d.Retryable {
		fields["retryable"] = true
	}
	return fields
}

// Dump walks the wrap chain and pulls out the typed code and any database
// driver error. Postgres errors may come from pgx (gorm) or lib/pq (goose
// tooling); sqlite only exposes a message.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.Driver = "pgx"
		d.PGCode, d.PGConstraint, d.PGTable = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName
		d.PGColumn, d.PGDetail, d.PGMessage = pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message
	case errors.As(err, &pqErr):
		d.Driver = "pq"
		d.PGCode, d.PGConstraint, d.PGTable = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		d.PGColumn, d.PGDetail, d.PGMessage = pqErr.Column, pqErr.Detail, pqErr.Message
	case strings.Contains(d.TopMessage, "constraint failed") || strings.Contains(d.TopMessage, "SQL logic error"):
		d.Driver = "sqlite"
	}
	return d
}
