package loader

import (
	"regexp"
	"strings"

	"github.com/datamesa/weatheretl/internal/support/exception"
)

// identifierPattern is the shape every table, schema and column name must
// match before it is interpolated into DDL or the merge statement. Row values
// are always bound as parameters; identifiers are validated and quoted.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdentifier rejects names that cannot be safely quoted.
func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return exception.Newf(exception.KindConfiguration, moduleName, "invalid SQL identifier %q", name)
	}
	return nil
}

// quoteIdent quotes an already-validated identifier for the given dialect.
func quoteIdent(dialect, name string) string {
	if dialect == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// qualify renders schema.name with dialect quoting. An empty schema yields
// just the quoted name (sqlite has no schemas).
func qualify(dialect, schema, name string) string {
	if schema == "" {
		return quoteIdent(dialect, name)
	}
	return quoteIdent(dialect, schema) + "." + quoteIdent(dialect, name)
}

// buildCreateStaging renders the DDL for the staging table, one column per
// canonical column, typed exactly as the destination declares it so the merge
// never trips over a type mismatch.
func buildCreateStaging(dialect, stagingQualified string, columns []string, columnTypes map[string]string) string {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		defs = append(defs, quoteIdent(dialect, col)+" "+columnTypes[col])
	}
	return "CREATE TABLE " + stagingQualified + " (" + strings.Join(defs, ", ") + ")"
}

// buildMerge renders the merge statement: match staging against the
// destination on the key columns, update every non-key column on match,
// insert the full row on miss.
func buildMerge(dialect, destQualified, stagingQualified string, columns, keyColumns []string) string {
	keys := make(map[string]bool, len(keyColumns))
	for _, k := range keyColumns {
		keys[k] = true
	}

	var on []string
	for _, k := range keyColumns {
		on = append(on, "dest."+quoteIdent(dialect, k)+" = src."+quoteIdent(dialect, k))
	}

	var updates []string
	for _, col := range columns {
		if keys[col] {
			continue
		}
		updates = append(updates, quoteIdent(dialect, col)+" = src."+quoteIdent(dialect, col))
	}

	var insertCols, insertVals []string
	for _, col := range columns {
		insertCols = append(insertCols, quoteIdent(dialect, col))
		insertVals = append(insertVals, "src."+quoteIdent(dialect, col))
	}

	var b strings.Builder
	b.WriteString("MERGE INTO " + destQualified + " AS dest")
	b.WriteString(" USING " + stagingQualified + " AS src")
	b.WriteString(" ON " + strings.Join(on, " AND "))
	b.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(updates, ", "))
	b.WriteString(" WHEN NOT MATCHED THEN INSERT (" + strings.Join(insertCols, ", ") + ")")
	b.WriteString(" VALUES (" + strings.Join(insertVals, ", ") + ")")
	return b.String()
}
