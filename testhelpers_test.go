package cassschema

import "flag"
import "sync"
import "testing"

var (
	flagCluster  = flag.String("cluster", "", "cassandra nodes given as comma-separated host:port pairs")
	flagKeyspace = flag.String("keyspace", "cass_schema_test", "name of throwaway keyspace for testing")
)

const (
	testBasePath    = "testdata/cass_schema"
	testReplication = "{'class': 'SimpleStrategy', 'replication_factor': 1}"
)

func newTestCluster(t *testing.T) (*Cluster, *FakeCluster) {
	return NewTestCluster(t, *flagCluster)
}

// requireFake skips tests that inspect cluster state when running against a live cluster.
func requireFake(t *testing.T) {
	if *flagCluster != "" {
		t.Skip("inspects fake cluster state")
	}
}

// recordingConnector hands out sessions that record statements and fail the ones listed in failures.
type recordingConnector struct {
	mu       sync.Mutex
	connects []string
	executed []string
	failures map[string]error
}

func (c *recordingConnector) Connect(keyspace string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects = append(c.connects, keyspace)
	return &recordingSession{c}, nil
}

type recordingSession struct {
	connector *recordingConnector
}

func (s *recordingSession) Exec(stmt string) error {
	s.connector.mu.Lock()
	defer s.connector.mu.Unlock()
	s.connector.executed = append(s.connector.executed, stmt)
	return s.connector.failures[stmt]
}

func (s *recordingSession) Close() {}
