package cassschema

import "errors"
import "fmt"

var (
	ErrClusterNotConfigured = errors.New("cluster has neither hosts nor a connector")
	ErrDataStoreNotFound    = errors.New("datastore not found")
	ErrDropsDisallowed      = errors.New("drop commands have been disabled by the disallow_drops option")
	ErrNoDataStores         = errors.New("datastores is a required argument")
	ErrDuplicateDataStore   = errors.New("duplicate datastore name")
	ErrNilDataStore         = errors.New("nil datastore")
	ErrNoReplication        = errors.New("replication is required")
	ErrRunnerNotSetup       = errors.New("default runner has not been set up")
)

type WrappedError struct {
	err     error
	wrapped error
}

func WrapError(msg string, err error) error { return WrappedError{errors.New(msg), err} }
func (wrap WrappedError) Error() string     { return fmt.Sprintf("%s: %s", wrap.err, wrap.wrapped) }
func (wrap WrappedError) Unwrap() error     { return wrap.wrapped }

// SchemaError reports a statement that failed to execute. Statement holds the literal text that was
// sent to the cluster and Err the error the driver returned for it.
type SchemaError struct {
	Statement string
	Err       error
}

// NewSchemaError wraps a driver error with the statement that caused it.
func NewSchemaError(cause error, statement string) *SchemaError {
	return &SchemaError{Statement: statement, Err: cause}
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Error %v when running statement: %s", e.Err, e.Statement)
}

func (e *SchemaError) Unwrap() error { return e.Err }
