package cassschema

import "errors"
import "fmt"
import "path/filepath"
import "sync"
import "time"

import "github.com/go-kit/log"
import "github.com/go-kit/log/level"
import "github.com/gocql/gocql"

// Names of the statement files inside a schema directory.
const (
	SchemaFile   = "schema.cql"
	MigrationDir = "migrations"
	FileSuffix   = ".cql"
)

// A DataStore ties a keyspace on a cluster to a directory of statement files:
//
//   <schema base path>/<Schema>/schema.cql
//   <schema base path>/<Schema>/migrations/<migration>.cql
//
// Schema defaults to Name and may be reassigned to point the datastore at different statement files.
// A DataStore opens at most one session per scope, even when operations on it run concurrently.
// Statements of concurrent operations interleave; distinct DataStores are independent.
type DataStore struct {
	Name        string
	Cluster     *Cluster
	Keyspace    string
	Replication string // Replication map for keyspace creation, e.g. "{'class': 'SimpleStrategy', 'replication_factor': 3}".
	Schema      string

	schemaBasePath string
	logger         log.Logger
	metrics        *Metrics

	mu              sync.Mutex
	clusterSession  Session // not bound to a keyspace
	keyspaceSession Session
}

// NewDataStore returns a DataStore whose schema directory is named after the datastore.
func NewDataStore(name string, cluster *Cluster, keyspace, replication string) *DataStore {
	return &DataStore{
		Name:        name,
		Cluster:     cluster,
		Keyspace:    keyspace,
		Replication: replication,
		Schema:      name,
	}
}

func (ds *DataStore) setup(schemaBasePath string, logger log.Logger, metrics *Metrics) {
	ds.schemaBasePath = schemaBasePath
	ds.logger = log.With(logger, "datastore", ds.Name, "keyspace", ds.Keyspace)
	ds.metrics = metrics
}

func (ds *DataStore) schemaName() string {
	if ds.Schema == "" {
		return ds.Name
	}
	return ds.Schema
}

// SchemaPath returns the directory holding the datastore's statement files.
func (ds *DataStore) SchemaPath() string {
	return filepath.Join(ds.schemaBasePath, ds.schemaName())
}

// SchemaStatements returns the statements of the datastore's schema.cql file.
func (ds *DataStore) SchemaStatements() ([]string, error) {
	return Statements(ds.schemaBasePath, ds.schemaName(), SchemaFile)
}

// MigrationStatements returns the statements of the named migration file.
func (ds *DataStore) MigrationStatements(migration string) ([]string, error) {
	return Statements(ds.schemaBasePath, ds.schemaName(), MigrationDir, migration+FileSuffix)
}

// Create creates the keyspace, then runs every statement of schema.cql against it, in order. The
// first failing statement stops the run and is reported as a *SchemaError.
func (ds *DataStore) Create() error {
	if ds.Replication == "" {
		return WrapError(fmt.Sprintf("datastore %s", ds.Name), ErrNoReplication)
	}
	stmts, err := ds.SchemaStatements()
	if err != nil {
		return err
	}
	session, err := ds.session(false)
	if err != nil {
		return err
	}
	if err := ds.runKeyspaceStatement(CreateKeyspaceCQL(ds.Keyspace, ds.Replication), session); err != nil {
		return err
	}
	if session, err = ds.session(true); err != nil {
		return err
	}
	return ds.runStatements(stmts, session)
}

// Drop removes the keyspace.
func (ds *DataStore) Drop() error {
	session, err := ds.session(false)
	if err != nil {
		return err
	}
	return ds.runKeyspaceStatement(DropKeyspaceCQL(ds.Keyspace), session)
}

// Migrate runs the statements of migrations/<migration>.cql against the keyspace, in order, stopping
// at the first failure.
func (ds *DataStore) Migrate(migration string) error {
	stmts, err := ds.MigrationStatements(migration)
	if err != nil {
		return err
	}
	session, err := ds.session(true)
	if err != nil {
		return err
	}
	return ds.runStatements(stmts, session)
}

// Close releases any sessions the datastore has opened. They are reopened on next use.
func (ds *DataStore) Close() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for _, s := range []*Session{&ds.clusterSession, &ds.keyspaceSession} {
		if *s != nil {
			(*s).Close()
			*s = nil
		}
	}
}

// session returns the memoized session, bound to the keyspace or not, opening it on first use. A
// failed attempt is not remembered.
func (ds *DataStore) session(bound bool) (Session, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	slot, keyspace := &ds.clusterSession, ""
	if bound {
		slot, keyspace = &ds.keyspaceSession, ds.Keyspace
	}
	if *slot != nil {
		return *slot, nil
	}
	if ds.Cluster == nil {
		return nil, WrapError(fmt.Sprintf("datastore %s", ds.Name), ErrClusterNotConfigured)
	}
	connector, err := ds.Cluster.Resolve()
	if err != nil {
		return nil, WrapError(fmt.Sprintf("datastore %s", ds.Name), err)
	}
	session, err := connector.Connect(keyspace)
	if err != nil {
		return nil, WrapError(fmt.Sprintf("datastore %s", ds.Name), err)
	}
	*slot = session
	return session, nil
}

func (ds *DataStore) runStatements(stmts []string, session Session) error {
	for _, stmt := range stmts {
		if err := ds.runStatement(stmt, session, false); err != nil {
			return err
		}
	}
	return nil
}

// runKeyspaceStatement is runStatement for keyspace creation and removal, where configuration errors
// such as an existing or missing keyspace are not failures.
func (ds *DataStore) runKeyspaceStatement(stmt string, session Session) error {
	return ds.runStatement(stmt, session, true)
}

func (ds *DataStore) runStatement(stmt string, session Session, tolerateConfigErrors bool) error {
	logger := ds.logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	level.Info(logger).Log("msg", "executing statement", "statement", stmt)
	start := time.Now()
	err := session.Exec(stmt)
	switch {
	case err == nil:
		ds.metrics.observe(ds.Name, outcomeSuccess, start)
		return nil
	case tolerateConfigErrors && IsConfigurationError(err):
		level.Warn(logger).Log("msg", "ignoring keyspace configuration error", "statement", stmt, "err", err)
		ds.metrics.observe(ds.Name, outcomeIgnored, start)
		return nil
	}
	level.Error(logger).Log("msg", "statement failed", "statement", stmt, "err", err)
	ds.metrics.observe(ds.Name, outcomeFailure, start)
	return NewSchemaError(err, stmt)
}

// IsConfigurationError reports whether err is a Cassandra configuration error, including the
// already-exists error returned when creating a keyspace that is present.
func IsConfigurationError(err error) bool {
	var reqErr gocql.RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	switch reqErr.Code() {
	case gocql.ErrCodeConfig, gocql.ErrCodeAlreadyExists:
		return true
	}
	return false
}
