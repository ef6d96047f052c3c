package cassschema

import "fmt"
import "sort"
import "sync"

import "github.com/gocql/gocql"

const (
	errCodeSyntax        = gocql.ErrCodeSyntax
	errCodeInvalid       = gocql.ErrCodeInvalid
	errCodeConfig        = gocql.ErrCodeConfig
	errCodeAlreadyExists = gocql.ErrCodeAlreadyExists
)

// fakeRequestError satisfies gocql.RequestError, so the fake fails the way a live cluster does.
type fakeRequestError struct {
	code    int
	message string
}

func (e *fakeRequestError) Code() int       { return e.code }
func (e *fakeRequestError) Message() string { return e.message }
func (e *fakeRequestError) Error() string   { return e.message }

func fakeError(code int, format string, args ...interface{}) error {
	return &fakeRequestError{code: code, message: fmt.Sprintf(format, args...)}
}

type fakeColumn struct {
	name string
	typ  string
}

type fakeTable struct {
	columns []fakeColumn
	key     []string
}

func (t *fakeTable) column(name string) int {
	for i, col := range t.columns {
		if col.name == name {
			return i
		}
	}
	return -1
}

type fakeKeyspace struct {
	replication string
	tables      map[string]*fakeTable
	types       map[string][]fakeColumn
	indexes     map[string]string // index name -> table name
}

func newFakeKeyspace(replication string) *fakeKeyspace {
	return &fakeKeyspace{
		replication: replication,
		tables:      make(map[string]*fakeTable),
		types:       make(map[string][]fakeColumn),
		indexes:     make(map[string]string),
	}
}

// FakeCluster is an in-memory imitation of a Cassandra cluster that understands schema statements:
// keyspace, table, type and index DDL, plus data statements checked only for the existence of the
// table they name. This is great for unit testing and dry runs, but beware that the fake
// implementation is quite rudimentary, incomplete, and probably inaccurate.
type FakeCluster struct {
	mu         sync.Mutex
	keyspaces  map[string]*fakeKeyspace
	statements []string
}

// FakeCassandra returns an empty fake cluster holding only the system keyspace.
func FakeCassandra() *FakeCluster {
	c := &FakeCluster{keyspaces: make(map[string]*fakeKeyspace)}
	c.keyspaces["system"] = newFakeKeyspace("{'class': 'LocalStrategy'}")
	return c
}

// Connect opens a session on the fake. Binding to a keyspace that does not exist fails.
func (c *FakeCluster) Connect(keyspace string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if keyspace != "" {
		if _, ok := c.keyspaces[keyspace]; !ok {
			return nil, fakeError(errCodeInvalid, "Keyspace '%s' does not exist", keyspace)
		}
	}
	return &fakeSession{cluster: c, keyspace: keyspace}, nil
}

// Statements returns every statement executed on the fake so far, including failed ones.
func (c *FakeCluster) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// HasKeyspace reports whether the keyspace exists.
func (c *FakeCluster) HasKeyspace(keyspace string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.keyspaces[keyspace]
	return ok
}

// Replication returns the replication map the keyspace was created with.
func (c *FakeCluster) Replication(keyspace string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ks, ok := c.keyspaces[keyspace]; ok {
		return ks.replication
	}
	return ""
}

// Tables returns the sorted names of the tables in a keyspace.
func (c *FakeCluster) Tables(keyspace string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0)
	if ks, ok := c.keyspaces[keyspace]; ok {
		for name := range ks.tables {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Columns returns the column types of a table by column name, or nil if there is no such table.
func (c *FakeCluster) Columns(keyspace, table string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks, ok := c.keyspaces[keyspace]
	if !ok {
		return nil
	}
	t, ok := ks.tables[table]
	if !ok {
		return nil
	}
	cols := make(map[string]string, len(t.columns))
	for _, col := range t.columns {
		cols[col.name] = col.typ
	}
	return cols
}

// Types returns the sorted names of the user-defined types in a keyspace.
func (c *FakeCluster) Types(keyspace string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0)
	if ks, ok := c.keyspaces[keyspace]; ok {
		for name := range ks.types {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *FakeCluster) execute(s *fakeSession, stmt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, stmt)
	cmd, err := compileStatement(stmt)
	if err != nil {
		return err
	}
	return cmd.execute(c, s)
}

func (c *FakeCluster) keyspace(s *fakeSession, name qualifiedName) (*fakeKeyspace, error) {
	ksName := name.keyspace
	if ksName == "" {
		ksName = s.keyspace
	}
	if ksName == "" {
		return nil, fakeError(errCodeInvalid,
			"No keyspace has been specified. USE a keyspace, or explicitly specify keyspace.tablename")
	}
	ks, ok := c.keyspaces[ksName]
	if !ok {
		return nil, fakeError(errCodeInvalid, "Keyspace '%s' does not exist", ksName)
	}
	return ks, nil
}

func (c *FakeCluster) table(s *fakeSession, name qualifiedName) (*fakeKeyspace, *fakeTable, error) {
	ks, err := c.keyspace(s, name)
	if err != nil {
		return nil, nil, err
	}
	t, ok := ks.tables[name.name]
	if !ok {
		return nil, nil, fakeError(errCodeInvalid, "unconfigured table %s", name.name)
	}
	return ks, t, nil
}

type fakeSession struct {
	cluster  *FakeCluster
	keyspace string
	closed   bool
}

func (s *fakeSession) Exec(stmt string) error {
	if s.closed {
		return gocql.ErrSessionClosed
	}
	return s.cluster.execute(s, stmt)
}

func (s *fakeSession) Close() { s.closed = true }

type fakeCommand interface {
	execute(c *FakeCluster, s *fakeSession) error
}

type useCommand struct {
	keyspace string
}

func (cmd *useCommand) execute(c *FakeCluster, s *fakeSession) error {
	if _, ok := c.keyspaces[cmd.keyspace]; !ok {
		return fakeError(errCodeInvalid, "Keyspace '%s' does not exist", cmd.keyspace)
	}
	s.keyspace = cmd.keyspace
	return nil
}

type createKeyspaceCommand struct {
	name    string
	strict  bool
	options optionMap
}

func (cmd *createKeyspaceCommand) execute(c *FakeCluster, s *fakeSession) error {
	if _, ok := c.keyspaces[cmd.name]; ok {
		if cmd.strict {
			return fakeError(errCodeAlreadyExists, "Cannot add existing keyspace \"%s\"", cmd.name)
		}
		return nil
	}
	c.keyspaces[cmd.name] = newFakeKeyspace(cmd.options["replication"])
	return nil
}

type alterKeyspaceCommand struct {
	name    string
	options optionMap
}

func (cmd *alterKeyspaceCommand) execute(c *FakeCluster, s *fakeSession) error {
	ks, ok := c.keyspaces[cmd.name]
	if !ok {
		return fakeError(errCodeConfig, "Cannot alter unknown keyspace %s", cmd.name)
	}
	if r, ok := cmd.options["replication"]; ok {
		ks.replication = r
	}
	return nil
}

type createTableCommand struct {
	table   qualifiedName
	strict  bool
	columns []fakeColumn
	key     []string
}

func (cmd *createTableCommand) execute(c *FakeCluster, s *fakeSession) error {
	ks, err := c.keyspace(s, cmd.table)
	if err != nil {
		return err
	}
	if _, ok := ks.tables[cmd.table.name]; ok {
		if cmd.strict {
			return fakeError(errCodeAlreadyExists, "Cannot add already existing table \"%s\"", cmd.table.name)
		}
		return nil
	}
	t := &fakeTable{key: cmd.key}
	for _, col := range cmd.columns {
		if t.column(col.name) >= 0 {
			return fakeError(errCodeInvalid, "Multiple definition of identifier %s", col.name)
		}
		t.columns = append(t.columns, col)
	}
	for _, k := range cmd.key {
		if t.column(k) < 0 {
			return fakeError(errCodeInvalid, "Unknown definition %s referenced in PRIMARY KEY", k)
		}
	}
	ks.tables[cmd.table.name] = t
	return nil
}

type alterTableCommand struct {
	table qualifiedName
	add   *fakeColumn
	alter *fakeColumn
	drop  string
}

func (cmd *alterTableCommand) execute(c *FakeCluster, s *fakeSession) error {
	_, t, err := c.table(s, cmd.table)
	if err != nil {
		return err
	}
	switch {
	case cmd.add != nil:
		if t.column(cmd.add.name) >= 0 {
			return fakeError(errCodeInvalid,
				"Invalid column name %s because it conflicts with an existing column", cmd.add.name)
		}
		t.columns = append(t.columns, *cmd.add)
	case cmd.alter != nil:
		i := t.column(cmd.alter.name)
		if i < 0 {
			return fakeError(errCodeInvalid, "Column %s was not found in table %s", cmd.alter.name, cmd.table.name)
		}
		t.columns[i].typ = cmd.alter.typ
	case cmd.drop != "":
		i := t.column(cmd.drop)
		if i < 0 {
			return fakeError(errCodeInvalid, "Column %s was not found in table %s", cmd.drop, cmd.table.name)
		}
		for _, k := range t.key {
			if k == cmd.drop {
				return fakeError(errCodeInvalid, "Cannot drop PRIMARY KEY part %s", cmd.drop)
			}
		}
		t.columns = append(t.columns[:i], t.columns[i+1:]...)
	}
	return nil
}

type createTypeCommand struct {
	typ    qualifiedName
	strict bool
	fields []fakeColumn
}

func (cmd *createTypeCommand) execute(c *FakeCluster, s *fakeSession) error {
	ks, err := c.keyspace(s, cmd.typ)
	if err != nil {
		return err
	}
	if _, ok := ks.types[cmd.typ.name]; ok {
		if cmd.strict {
			return fakeError(errCodeInvalid, "A user type of name %s already exists", cmd.typ)
		}
		return nil
	}
	ks.types[cmd.typ.name] = cmd.fields
	return nil
}

type createIndexCommand struct {
	name   string
	table  qualifiedName
	strict bool
}

func (cmd *createIndexCommand) execute(c *FakeCluster, s *fakeSession) error {
	ks, _, err := c.table(s, cmd.table)
	if err != nil {
		return err
	}
	name := cmd.name
	if name == "" {
		name = fmt.Sprintf("%s_idx_%d", cmd.table.name, len(ks.indexes))
	}
	if _, ok := ks.indexes[name]; ok {
		if cmd.strict {
			return fakeError(errCodeInvalid, "Index %s already exists", name)
		}
		return nil
	}
	ks.indexes[name] = cmd.table.name
	return nil
}

type dropCommand struct {
	kind   string
	target qualifiedName
	strict bool
}

func (cmd *dropCommand) execute(c *FakeCluster, s *fakeSession) error {
	if cmd.kind == "keyspace" {
		if _, ok := c.keyspaces[cmd.target.name]; !ok {
			if cmd.strict {
				return fakeError(errCodeConfig, "Cannot drop non existing keyspace '%s'.", cmd.target.name)
			}
			return nil
		}
		delete(c.keyspaces, cmd.target.name)
		return nil
	}
	ks, err := c.keyspace(s, cmd.target)
	if err != nil {
		return err
	}
	var present bool
	switch cmd.kind {
	case "table":
		if _, present = ks.tables[cmd.target.name]; present {
			delete(ks.tables, cmd.target.name)
			for idx, table := range ks.indexes {
				if table == cmd.target.name {
					delete(ks.indexes, idx)
				}
			}
		}
	case "type":
		if _, present = ks.types[cmd.target.name]; present {
			delete(ks.types, cmd.target.name)
		}
	case "index":
		if _, present = ks.indexes[cmd.target.name]; present {
			delete(ks.indexes, cmd.target.name)
		}
	}
	if !present && cmd.strict {
		return fakeError(errCodeInvalid, "%s '%s' doesn't exist", cmd.kind, cmd.target)
	}
	return nil
}

type dmlCommand struct {
	verb  string
	table qualifiedName
}

func (cmd *dmlCommand) execute(c *FakeCluster, s *fakeSession) error {
	_, _, err := c.table(s, cmd.table)
	return err
}
