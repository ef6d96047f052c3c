package cassschema

import "strings"

// CQLBuilder is a sequence of CQL fragments, for constructing statements programmatically.
type CQLBuilder []string

// String joins all of the fragments of the builder into a single statement.
func (b CQLBuilder) String() string {
	return strings.Join(b, "")
}

// Append adds fragments to the end.
func (b *CQLBuilder) Append(terms ...string) *CQLBuilder {
	if *b == nil {
		*b = make(CQLBuilder, 0)
	}
	*b = append(*b, terms...)
	return b
}

// AppendIf adds the fragments only when cond holds.
func (b *CQLBuilder) AppendIf(cond bool, terms ...string) *CQLBuilder {
	if cond {
		b.Append(terms...)
	}
	return b
}

// CreateKeyspaceCQL returns the statement creating keyspace with the given replication map, e.g.
//
//   CreateKeyspaceCQL("app", "{'class': 'SimpleStrategy', 'replication_factor': 3}")
//
// The statement is a no-op on a cluster where the keyspace already exists. Cassandra rejects the
// statement when replication is empty; NewRunner and DataStore.Create refuse such datastores.
func CreateKeyspaceCQL(keyspace, replication string) string {
	var b CQLBuilder
	return b.Append("CREATE KEYSPACE IF NOT EXISTS ", keyspace).
		AppendIf(replication != "", " WITH replication = ", replication).
		String()
}

// DropKeyspaceCQL returns the statement removing keyspace. It is a no-op when the keyspace is absent.
func DropKeyspaceCQL(keyspace string) string {
	var b CQLBuilder
	return b.Append("DROP KEYSPACE IF EXISTS ", keyspace).String()
}
