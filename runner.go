package cassschema

import "fmt"
import "sync"

import "github.com/go-kit/log"
import "github.com/prometheus/client_golang/prometheus"

// Options configure a Runner.
type Options struct {
	DataStores     []*DataStore // Required. The datastores whose schemas will be managed.
	SchemaBasePath string       // The directory holding one schema directory per datastore.
	Logger         log.Logger   // Optional. Receives every statement before it is executed.
	DisallowDrops  bool         // When set, Drop and DropAll fail with ErrDropsDisallowed.

	// Optional. Registers the statement metrics; see NewMetrics.
	Registerer prometheus.Registerer
}

// A Runner dispatches schema operations to a fixed set of datastores by name.
type Runner struct {
	datastores     []*DataStore
	lookup         map[string]*DataStore
	schemaBasePath string
	disallowDrops  bool
}

// NewRunner builds a Runner over opts.DataStores. Datastore names must be unique and every datastore
// needs a replication map. The datastores are left untouched when NewRunner fails.
func NewRunner(opts Options) (*Runner, error) {
	if len(opts.DataStores) == 0 {
		return nil, ErrNoDataStores
	}
	r := &Runner{
		datastores:     make([]*DataStore, 0, len(opts.DataStores)),
		lookup:         make(map[string]*DataStore, len(opts.DataStores)),
		schemaBasePath: opts.SchemaBasePath,
		disallowDrops:  opts.DisallowDrops,
	}
	for i, ds := range opts.DataStores {
		switch {
		case ds == nil:
			return nil, WrapError(fmt.Sprintf("datastore %d", i), ErrNilDataStore)
		case ds.Replication == "":
			return nil, WrapError(fmt.Sprintf("datastore %s", ds.Name), ErrNoReplication)
		}
		if _, ok := r.lookup[ds.Name]; ok {
			return nil, WrapError(fmt.Sprintf("datastore %s", ds.Name), ErrDuplicateDataStore)
		}
		r.lookup[ds.Name] = ds
		r.datastores = append(r.datastores, ds)
	}

	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, WrapError("registering metrics", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	for _, ds := range r.datastores {
		ds.setup(opts.SchemaBasePath, logger, metrics)
	}
	return r, nil
}

// SchemaBasePath returns the directory statement files are read from.
func (r *Runner) SchemaBasePath() string { return r.schemaBasePath }

// DropsDisallowed reports whether drop commands are refused.
func (r *Runner) DropsDisallowed() bool { return r.disallowDrops }

// DataStores returns the registered datastores in registration order.
func (r *Runner) DataStores() []*DataStore {
	return append([]*DataStore(nil), r.datastores...)
}

// DataStore looks up a datastore by name, failing with ErrDataStoreNotFound if there is none.
func (r *Runner) DataStore(name string) (*DataStore, error) {
	ds, ok := r.lookup[name]
	if !ok {
		return nil, WrapError(fmt.Sprintf("datastore %s", name), ErrDataStoreNotFound)
	}
	return ds, nil
}

// CreateAll creates every datastore in registration order, stopping at the first error.
func (r *Runner) CreateAll() error {
	for _, ds := range r.datastores {
		if err := ds.Create(); err != nil {
			return err
		}
	}
	return nil
}

// DropAll drops every datastore in registration order, stopping at the first error.
func (r *Runner) DropAll() error {
	if r.disallowDrops {
		return ErrDropsDisallowed
	}
	for _, ds := range r.datastores {
		if err := ds.Drop(); err != nil {
			return err
		}
	}
	return nil
}

// Create creates the named datastore.
func (r *Runner) Create(name string) error {
	ds, err := r.DataStore(name)
	if err != nil {
		return err
	}
	return ds.Create()
}

// Drop drops the named datastore.
func (r *Runner) Drop(name string) error {
	if r.disallowDrops {
		return ErrDropsDisallowed
	}
	ds, err := r.DataStore(name)
	if err != nil {
		return err
	}
	return ds.Drop()
}

// Migrate runs the named migration on the named datastore.
func (r *Runner) Migrate(name, migration string) error {
	ds, err := r.DataStore(name)
	if err != nil {
		return err
	}
	return ds.Migrate(migration)
}

// Close releases the sessions held by every datastore.
func (r *Runner) Close() {
	for _, ds := range r.datastores {
		ds.Close()
	}
}

var (
	defaultMu     sync.RWMutex
	defaultRunner *Runner
)

// Setup builds a Runner from opts and installs it as the process-wide default returned by Default.
// The previous default, if any, is closed.
func Setup(opts Options) (*Runner, error) {
	r, err := NewRunner(opts)
	if err != nil {
		return nil, err
	}
	defaultMu.Lock()
	prev := defaultRunner
	defaultRunner = r
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return r, nil
}

// Default returns the Runner installed by Setup, or ErrRunnerNotSetup.
func Default() (*Runner, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultRunner == nil {
		return nil, ErrRunnerNotSetup
	}
	return defaultRunner, nil
}

// ResetDefault closes and removes the default Runner.
func ResetDefault() {
	defaultMu.Lock()
	prev := defaultRunner
	defaultRunner = nil
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
}
