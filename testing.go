package cassschema

import "strings"
import "testing"

// NewTestCluster returns a cluster for tests. Given a comma-separated list of nodes it dials that live
// cluster; given none it returns a cluster backed by a fresh FakeCassandra, which is also returned so
// the test can inspect it. The fake is nil for a live cluster.
func NewTestCluster(t testing.TB, nodes string) (*Cluster, *FakeCluster) {
	t.Helper()
	if nodes == "" {
		fake := FakeCassandra()
		return ClusterFromConnector(fake), fake
	}
	return NewCluster(strings.Split(nodes, ","), 0), nil
}

// DropKeyspaceAfter drops the datastore's keyspace when the test finishes.
func DropKeyspaceAfter(t testing.TB, ds *DataStore) {
	t.Cleanup(func() {
		if err := ds.Drop(); err != nil {
			t.Logf("dropping keyspace %s: %v", ds.Keyspace, err)
		}
		ds.Close()
	})
}
