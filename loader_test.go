package cassschema

import "errors"
import "io/fs"
import "os"
import "path/filepath"
import "testing"

import . "github.com/smartystreets/goconvey/convey"

func TestParseStatements(t *testing.T) {
	Convey("Statements are separated by blank lines and comments dropped", t, func() {
		stmts := ParseStatements("CREATE TABLE t1 (...);\n\n# comment\n\nCREATE TABLE t2 (...);")
		So(stmts, ShouldResemble, []string{"CREATE TABLE t1 (...);", "CREATE TABLE t2 (...);"})
	})

	Convey("A single newline does not split a statement", t, func() {
		stmts := ParseStatements("CREATE TABLE t (\n  k text PRIMARY KEY\n)")
		So(stmts, ShouldResemble, []string{"CREATE TABLE t (\n  k text PRIMARY KEY\n)"})
	})

	Convey("Runs of more than two newlines are a single delimiter", t, func() {
		So(ParseStatements("a\n\n\n\nb\n"), ShouldResemble, []string{"a", "b"})
	})

	Convey("Comment-only and blank input yields nothing", t, func() {
		So(ParseStatements(""), ShouldBeEmpty)
		So(ParseStatements("# one\n  # two\n\n\n#three\n   \n"), ShouldBeEmpty)
	})

	Convey("Comment and whitespace lines inside a statement are removed", t, func() {
		stmts := ParseStatements("CREATE TABLE t (\n   # the key\n  \t\n  k text PRIMARY KEY\n)\n")
		So(stmts, ShouldResemble, []string{"CREATE TABLE t (\n  k text PRIMARY KEY\n)"})
	})

	Convey("Only whole-line comments are comments", t, func() {
		So(ParseStatements("SELECT '#' FROM t # trailing"), ShouldResemble,
			[]string{"SELECT '#' FROM t # trailing"})
	})

	Convey("Only ASCII whitespace counts as blank", t, func() {
		So(ParseStatements("\u00a0# kept\nSELECT 1"), ShouldResemble, []string{"\u00a0# kept\nSELECT 1"})
		So(ParseStatements("\r\n\v# dropped\f\nSELECT 1"), ShouldResemble, []string{"SELECT 1"})
	})

	Convey("Order and duplicates are preserved", t, func() {
		So(ParseStatements("b\n\na\n\nb"), ShouldResemble, []string{"b", "a", "b"})
	})

	Convey("Re-parsing a parsed statement returns it unchanged", t, func() {
		content := "# header\n\nCREATE TABLE t (\n  # c\n  k text PRIMARY KEY\n);\n\n\nALTER TABLE t ADD v int;\n"
		for _, stmt := range ParseStatements(content) {
			So(ParseStatements(stmt), ShouldResemble, []string{stmt})
		}
	})
}

func TestStatements(t *testing.T) {
	Convey("Statements are read from base/schema/segments", t, func() {
		stmts, err := Statements(testBasePath, "test_datastore", "schema.cql")
		So(err, ShouldBeNil)
		So(stmts, ShouldResemble, []string{
			"CREATE TABLE test (\n  id text,\n  value int,\n  PRIMARY KEY (id)\n);",
			"CREATE TABLE test2 (\n  id text PRIMARY KEY,\n  name text\n);",
		})

		stmts, err = Statements(testBasePath, "test_datastore", "migrations", "migration.cql")
		So(err, ShouldBeNil)
		So(stmts, ShouldResemble, []string{"ALTER TABLE test ADD new_column int;"})
	})

	Convey("A missing file is reported unwrapped", t, func() {
		_, err := Statements(testBasePath, "missing_datastore", "schema.cql")
		So(errors.Is(err, fs.ErrNotExist), ShouldBeTrue)
		So(os.IsNotExist(err), ShouldBeTrue)
	})

	Convey("Files written by the loader's own output parse back to the same statements", t, func() {
		dir := t.TempDir()
		So(os.MkdirAll(filepath.Join(dir, "s"), 0o755), ShouldBeNil)
		stmts, _ := Statements(testBasePath, "test_datastore", "schema.cql")
		for _, stmt := range stmts {
			So(os.WriteFile(filepath.Join(dir, "s", "one.cql"), []byte(stmt), 0o644), ShouldBeNil)
			again, err := Statements(dir, "s", "one.cql")
			So(err, ShouldBeNil)
			So(again, ShouldResemble, []string{stmt})
		}
	})
}
