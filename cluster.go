package cassschema

import "sync"

// Session is an open connection to a cluster, optionally bound to a keyspace. Exec sends a single
// statement and blocks until the cluster has answered it.
type Session interface {
	Exec(stmt string) error
	Close()
}

// Connector opens sessions on a cluster. An empty keyspace requests a session that is not bound to
// any keyspace, which is what keyspace creation and removal run against.
type Connector interface {
	Connect(keyspace string) (Session, error)
}

// Cluster describes how to reach a set of Cassandra nodes. Either Hosts or Connector must be given.
// When Connector is nil, a gocql connector is built from Hosts, Port and Config the first time
// Resolve is called and reused from then on.
type Cluster struct {
	Hosts     []string
	Port      int
	Config    CassandraConfig // Optional driver settings. Nodes and Port are filled from Hosts and Port.
	Connector Connector

	mu       sync.Mutex
	resolved Connector
}

// NewCluster returns a Cluster for the given hosts and port.
func NewCluster(hosts []string, port int) *Cluster {
	return &Cluster{Hosts: hosts, Port: port}
}

// ClusterFromConnector returns a Cluster that always resolves to the given connector.
func ClusterFromConnector(connector Connector) *Cluster {
	return &Cluster{Connector: connector}
}

// Resolve returns the cluster's connector, creating it on first use. A Cluster with no connector and
// no hosts fails with ErrClusterNotConfigured rather than falling back to a default address.
func (c *Cluster) Resolve() (Connector, error) {
	if c.Connector != nil {
		return c.Connector, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved != nil {
		return c.resolved, nil
	}
	if len(c.Hosts) == 0 {
		return nil, ErrClusterNotConfigured
	}
	config := c.Config
	config.Node = c.Hosts
	config.Port = c.Port
	c.resolved = DialCassandra(config)
	return c.resolved, nil
}
