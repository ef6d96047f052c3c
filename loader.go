package cassschema

import "os"
import "path/filepath"
import "regexp"
import "strings"

var statementDelimiter = regexp.MustCompile(`\n{2,}`)

// Only ASCII whitespace counts as blank; a line starting with a non-breaking space is not a comment.
const asciiSpace = " \t\r\v\f"

// Statements reads the statement file at basePath/schemaName/pathSegments... and splits it into the
// statements it contains, in file order. A missing file is reported as the unmodified error from the
// os package, so callers can test it with errors.Is(err, fs.ErrNotExist).
func Statements(basePath, schemaName string, pathSegments ...string) ([]string, error) {
	parts := append([]string{basePath, schemaName}, pathSegments...)
	content, err := os.ReadFile(filepath.Join(parts...))
	if err != nil {
		return nil, err
	}
	return ParseStatements(string(content)), nil
}

// ParseStatements splits the text of a statement file into individual statements.
//
// Statements are separated by two or more consecutive newlines. Within a statement, lines whose first
// non-blank ASCII character is '#' are comments and are removed, as are blank lines. Statements left empty
// are dropped. Nothing else is touched: no terminator is added or stripped.
func ParseStatements(content string) []string {
	stmts := make([]string, 0)
	for _, block := range statementDelimiter.Split(content, -1) {
		lines := make([]string, 0)
		for _, line := range strings.Split(block, "\n") {
			trimmed := strings.Trim(line, asciiSpace)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.Join(lines, "\n"); len(stmt) > 0 {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
