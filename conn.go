package cassschema

import "strings"
import "time"

import "github.com/gocql/gocql"
import "github.com/pkg/errors"

// CassandraConfig specifies a Cassandra cluster to connect to.
type CassandraConfig struct {
	Node []string // Required. The list of nodes in the cluster.
	Port int      // Optional. Defaults to the driver's default port (9042).

	// Optional. The default consistency level for the connection. Valid values are one of:
	//
	//   any, one, two, three, quorum, all, localquorum, eachquorum, or localone.
	//
	// If no value is given, then "quorum" will be used. Matching is case insensitive and ignores
	// underscores, so "LOCAL_QUORUM" works too.
	Consistency string

	Timeout        time.Duration // Optional. Per-request timeout.
	ConnectTimeout time.Duration // Optional. Timeout for establishing connections.

	Username string // Optional. Enables password authentication when set.
	Password string

	CAPath           string // Optional. Enables TLS, verifying peers against this CA file.
	HostVerification bool

	DisableInitialHostLookup bool
}

type cassandraConnector struct {
	config CassandraConfig
}

// DialCassandra returns a Connector that opens gocql sessions on the cluster described by config.
// No connection is attempted until Connect is called.
func DialCassandra(config CassandraConfig) Connector {
	return &cassandraConnector{config: config}
}

func (c *cassandraConnector) Connect(keyspace string) (Session, error) {
	cluster, err := makeCluster(c.config)
	if err != nil {
		return nil, err
	}
	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", strings.Join(c.config.Node, ","))
	}
	return &cassandraSession{session}, nil
}

func makeCluster(config CassandraConfig) (*gocql.ClusterConfig, error) {
	consistency, err := parseConsistency(config.Consistency)
	if err != nil {
		return nil, err
	}
	cluster := gocql.NewCluster(config.Node...)
	if config.Port > 0 {
		cluster.Port = config.Port
	}
	cluster.Consistency = consistency
	if config.Timeout > 0 {
		cluster.Timeout = config.Timeout
	}
	if config.ConnectTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectTimeout
	}
	cluster.DisableInitialHostLookup = config.DisableInitialHostLookup
	if config.CAPath != "" {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.CAPath,
			EnableHostVerification: config.HostVerification,
		}
	}
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	return cluster, nil
}

func parseConsistency(value string) (gocql.Consistency, error) {
	switch strings.ReplaceAll(strings.ToLower(value), "_", "") {
	case "", "quorum":
		return gocql.Quorum, nil
	case "any":
		return gocql.Any, nil
	case "one":
		return gocql.One, nil
	case "two":
		return gocql.Two, nil
	case "three":
		return gocql.Three, nil
	case "all":
		return gocql.All, nil
	case "localquorum":
		return gocql.LocalQuorum, nil
	case "eachquorum":
		return gocql.EachQuorum, nil
	case "localone":
		return gocql.LocalOne, nil
	}
	return gocql.Quorum, errors.Errorf("invalid consistency %q", value)
}

type cassandraSession struct {
	session *gocql.Session
}

func (s *cassandraSession) Exec(stmt string) error {
	return s.session.Query(stmt).Exec()
}

func (s *cassandraSession) Close() {
	s.session.Close()
}
