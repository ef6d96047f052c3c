package cassschema

import "testing"

import . "github.com/smartystreets/goconvey/convey"

func TestCQLBuilder(t *testing.T) {
	Convey("Empty builder should return empty CQL", t, func() {
		var b CQLBuilder
		So(b.String(), ShouldEqual, "")
		b.AppendIf(false, "test")
		So(b.String(), ShouldEqual, "")
	})

	Convey("Constructed builder should join elements properly", t, func() {
		var b CQLBuilder
		b.Append("just text")
		b.Append(" more text", " and yet more text")
		b.AppendIf(false, " skipped")
		b.AppendIf(true, " and some cql")
		So(b.String(), ShouldEqual, "just text more text and yet more text and some cql")
	})
}

func TestKeyspaceCQL(t *testing.T) {
	Convey("Keyspace creation carries the replication map", t, func() {
		So(CreateKeyspaceCQL("app", "{'class': 'SimpleStrategy', 'replication_factor': 3}"), ShouldEqual,
			"CREATE KEYSPACE IF NOT EXISTS app WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 3}")
	})

	Convey("Keyspace removal tolerates an absent keyspace", t, func() {
		So(DropKeyspaceCQL("app"), ShouldEqual, "DROP KEYSPACE IF EXISTS app")
	})
}
