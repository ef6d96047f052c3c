package cassschema

import "errors"
import "fmt"
import "reflect"
import "testing"

import "github.com/gocql/gocql"

import . "github.com/smartystreets/goconvey/convey"

func parseWith(text string, grammar _parser) pToken {
	return grammar(pToken{runes: []rune(text)})
}

func parseInto(s string, dest interface{}) pToken {
	tok := parseWith(s, pStatement)
	if tok.err != nil {
		return tok
	}
	elem := reflect.ValueOf(dest).Elem()
	ctx := reflect.ValueOf(tok.ctx).Elem()
	if elem.Type() != ctx.Type() {
		tok.err = errors.New(fmt.Sprintf("dest type %s incompatible with ctx type %s",
			elem.Type(), ctx.Type()))
		return tok
	}
	elem.Set(ctx)
	return tok
}

func shouldFailNear(actual interface{}, expected ...interface{}) string {
	tok := actual.(pToken)
	if tok.err == nil {
		return "parse should have failed but did not"
	}
	return ShouldStartWith(string(tok.runes), expected...)
}

func shouldParse(actual interface{}, expected ...interface{}) string {
	tok := actual.(pToken)
	return ShouldBeNil(tok.err)
}

func shouldHaveErrorCode(actual interface{}, expected ...interface{}) string {
	var reqErr gocql.RequestError
	err, _ := actual.(error)
	if !errors.As(err, &reqErr) {
		return fmt.Sprintf("expected a request error, got %v", actual)
	}
	return ShouldEqual(reqErr.Code(), expected...)
}

func TestPToken(t *testing.T) {
	Convey("advance should never advance past end of runes", t, func() {
		t := pToken{runes: []rune("test")}
		u := t.advance(3)
		So(string(u.runes), ShouldEqual, "t")
		u = u.advance(3)
		So(string(u.runes), ShouldEqual, "")
	})
}

func TestCompileStatement(t *testing.T) {
	Convey("Statement should compile", t, func() {
		cmd, err := compileStatement("CREATE TABLE t (k text PRIMARY KEY)")
		So(err, ShouldBeNil)
		So(cmd, ShouldHaveSameTypeAs, &createTableCommand{})
	})

	Convey("Parse error should be a syntax error naming the statement", t, func() {
		_, err := compileStatement("CREATE TABLE FROM")
		So(err, shouldHaveErrorCode, gocql.ErrCodeSyntax)
		So(err.Error(), ShouldContainSubstring, "CREATE TABLE FROM")
	})

	Convey("Unknown commands are rejected", t, func() {
		_, err := compileStatement("FROBNICATE t")
		So(err, shouldHaveErrorCode, gocql.ErrCodeSyntax)
	})
}

func TestParseCreateKeyspace(t *testing.T) {
	var cmd createKeyspaceCommand
	parse := func(s string) pToken { return parseInto(s, &cmd) }

	Convey("Keyspace with replication map", t, func() {
		So(parse("CREATE KEYSPACE ks WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};"),
			shouldParse)
		So(cmd.name, ShouldEqual, "ks")
		So(cmd.strict, ShouldBeTrue)
		So(cmd.options["replication"], ShouldEqual, "{'class': 'SimpleStrategy', 'replication_factor': 1}")
	})

	Convey("IF NOT EXISTS and extra options", t, func() {
		So(parse("create keyspace if not exists ks with replication = {'class':'SimpleStrategy'}"+
			" and durable_writes = false"), shouldParse)
		So(cmd.strict, ShouldBeFalse)
		So(cmd.options["durable_writes"], ShouldEqual, "false")
	})

	Convey("Replication is mandatory", t, func() {
		So(parse("CREATE KEYSPACE ks"), shouldFailNear, "")
	})
}

func TestParseCreateTable(t *testing.T) {
	var cmd createTableCommand
	parse := func(s string) pToken { return parseInto(s, &cmd) }

	Convey("Inline primary key", t, func() {
		So(parse("CREATE TABLE t (k text PRIMARY KEY, v int)"), shouldParse)
		So(cmd.table, ShouldResemble, qualifiedName{name: "t"})
		So(cmd.key, ShouldResemble, []string{"k"})
		So(cmd.columns, ShouldResemble, []fakeColumn{{"k", "text"}, {"v", "int"}})
	})

	Convey("Composite key, qualified name, collection types and options", t, func() {
		So(parse("CREATE TABLE IF NOT EXISTS ks.t (\n  a text,\n  b timeuuid,\n  c map<text, frozen<list<int>>>,\n"+
			"  s int static,\n  PRIMARY KEY ((a, s), b)\n) WITH CLUSTERING ORDER BY (b DESC) AND comment = 'x';"),
			shouldParse)
		So(cmd.strict, ShouldBeFalse)
		So(cmd.table, ShouldResemble, qualifiedName{keyspace: "ks", name: "t"})
		So(cmd.key, ShouldResemble, []string{"a", "s", "b"})
		So(cmd.columns[2], ShouldResemble, fakeColumn{"c", "map<text, frozen<list<int>>>"})
	})

	Convey("Missing primary key", t, func() {
		So(parse("CREATE TABLE t (k text)"), shouldFailNear, "")
	})

	Convey("Unbalanced column list", t, func() {
		So(parse("CREATE TABLE t (k text PRIMARY KEY\n INVALID;"), shouldFailNear, "INVALID")
	})
}

func TestParseAlterAndDrop(t *testing.T) {
	Convey("ALTER TABLE ADD", t, func() {
		var cmd alterTableCommand
		So(parseInto("ALTER TABLE test ADD new_column int;", &cmd), shouldParse)
		So(cmd.add, ShouldResemble, &fakeColumn{"new_column", "int"})
	})

	Convey("ALTER TABLE ALTER TYPE", t, func() {
		var cmd alterTableCommand
		So(parseInto("ALTER TABLE test ALTER c TYPE blob", &cmd), shouldParse)
		So(cmd.alter, ShouldResemble, &fakeColumn{"c", "blob"})
	})

	Convey("ALTER TABLE with bad action", t, func() {
		var cmd alterTableCommand
		So(parseInto("ALTER TABLE test RENAME a TO b", &cmd), shouldFailNear, "RENAME")
	})

	Convey("DROP forms", t, func() {
		var cmd dropCommand
		So(parseInto("DROP KEYSPACE IF EXISTS ks", &cmd), shouldParse)
		So(cmd.kind, ShouldEqual, "keyspace")
		So(cmd.strict, ShouldBeFalse)
		So(parseInto("DROP COLUMNFAMILY ks.t", &cmd), shouldParse)
		So(cmd.kind, ShouldEqual, "table")
		So(cmd.target.String(), ShouldEqual, "ks.t")
		So(parseInto("DROP VIEW v", &cmd), shouldFailNear, "VIEW")
	})
}

func TestParseOtherStatements(t *testing.T) {
	Convey("Index, type and data statements", t, func() {
		for _, stmt := range []string{
			"CREATE INDEX ON t (v)",
			"CREATE INDEX IF NOT EXISTS t_v ON ks.t (v);",
			"CREATE CUSTOM INDEX t_s ON t (s) USING 'org.apache.cassandra.index.sasi.SASIIndex'",
			"CREATE TYPE address (street text, zip int)",
			"INSERT INTO t (k, v) VALUES ('a', 1) IF NOT EXISTS;",
			"UPDATE t SET v = 2 WHERE k = 'it''s'",
			"DELETE v FROM t WHERE k = 'a'",
			"SELECT * FROM ks.t WHERE k = ?",
			"TRUNCATE t",
			"USE ks",
		} {
			_, err := compileStatement(stmt)
			So(err, ShouldBeNil)
		}
	})

	Convey("Trailing text is rejected", t, func() {
		_, err := compileStatement("USE ks; USE other")
		So(err, shouldHaveErrorCode, gocql.ErrCodeSyntax)
	})
}

func TestFakeCluster(t *testing.T) {
	Convey("Keyspace lifecycle", t, func() {
		c := FakeCassandra()
		s, err := c.Connect("")
		So(err, ShouldBeNil)

		So(s.Exec("CREATE KEYSPACE ks WITH replication = {'class': 'SimpleStrategy'}"), ShouldBeNil)
		So(c.HasKeyspace("ks"), ShouldBeTrue)
		So(c.Replication("ks"), ShouldEqual, "{'class': 'SimpleStrategy'}")

		err = s.Exec("CREATE KEYSPACE ks WITH replication = {'class': 'SimpleStrategy'}")
		So(err, shouldHaveErrorCode, gocql.ErrCodeAlreadyExists)
		So(IsConfigurationError(err), ShouldBeTrue)

		So(s.Exec("DROP KEYSPACE ks"), ShouldBeNil)
		err = s.Exec("DROP KEYSPACE ks")
		So(err, shouldHaveErrorCode, gocql.ErrCodeConfig)
		So(IsConfigurationError(err), ShouldBeTrue)
		So(s.Exec("DROP KEYSPACE IF EXISTS ks"), ShouldBeNil)
	})

	Convey("Binding to a missing keyspace fails", t, func() {
		_, err := FakeCassandra().Connect("nope")
		So(err, shouldHaveErrorCode, gocql.ErrCodeInvalid)
	})

	Convey("Tables need a keyspace", t, func() {
		c := FakeCassandra()
		s, _ := c.Connect("")
		err := s.Exec("CREATE TABLE t (k text PRIMARY KEY)")
		So(err, shouldHaveErrorCode, gocql.ErrCodeInvalid)
		So(IsConfigurationError(err), ShouldBeFalse)
	})

	Convey("Table DDL against a bound session", t, func() {
		c := FakeCassandra()
		s, _ := c.Connect("")
		So(s.Exec("CREATE KEYSPACE ks WITH replication = {'class': 'SimpleStrategy'}"), ShouldBeNil)
		s, err := c.Connect("ks")
		So(err, ShouldBeNil)

		So(s.Exec("CREATE TABLE t (k text PRIMARY KEY, v int)"), ShouldBeNil)
		So(s.Exec("CREATE TABLE t (k text PRIMARY KEY)"), shouldHaveErrorCode, gocql.ErrCodeAlreadyExists)
		So(s.Exec("CREATE TABLE IF NOT EXISTS t (k text PRIMARY KEY)"), ShouldBeNil)
		So(s.Exec("ALTER TABLE t ADD w boolean"), ShouldBeNil)
		So(s.Exec("ALTER TABLE t ADD w boolean"), shouldHaveErrorCode, gocql.ErrCodeInvalid)
		So(s.Exec("ALTER TABLE t DROP k"), shouldHaveErrorCode, gocql.ErrCodeInvalid)
		So(s.Exec("ALTER TABLE t DROP v"), ShouldBeNil)
		So(c.Columns("ks", "t"), ShouldResemble, map[string]string{"k": "text", "w": "boolean"})

		So(s.Exec("CREATE TYPE pair (a int, b int)"), ShouldBeNil)
		So(c.Types("ks"), ShouldResemble, []string{"pair"})
		So(s.Exec("CREATE INDEX t_w ON t (w)"), ShouldBeNil)
		So(s.Exec("INSERT INTO t (k) VALUES ('x')"), ShouldBeNil)
		So(s.Exec("INSERT INTO missing (k) VALUES ('x')"), shouldHaveErrorCode, gocql.ErrCodeInvalid)

		So(s.Exec("DROP TABLE t"), ShouldBeNil)
		So(s.Exec("DROP TABLE t"), shouldHaveErrorCode, gocql.ErrCodeInvalid)
		So(c.Tables("ks"), ShouldBeEmpty)
	})

	Convey("Every statement is recorded, even failures", t, func() {
		c := FakeCassandra()
		s, _ := c.Connect("")
		s.Exec("USE system")
		s.Exec("garbage")
		So(c.Statements(), ShouldResemble, []string{"USE system", "garbage"})
	})

	Convey("Closed sessions refuse statements", t, func() {
		s, _ := FakeCassandra().Connect("")
		s.Close()
		So(s.Exec("USE system"), ShouldEqual, gocql.ErrSessionClosed)
	})
}
