/*
Package cassschema creates, drops and migrates Cassandra keyspaces from plain statement files, using
the github.com/gocql/gocql driver.

Statement Files

Each datastore has a schema directory under a common base path:

        cass_schema/
            users/
                schema.cql
                migrations/
                    add_last_login.cql

A file holds CQL statements separated by one or more blank lines. Lines whose first non-blank
character is # are comments and are dropped, as are lines holding only whitespace. A statement may
span several lines as long as none of them is blank:

        # Accounts.

        CREATE TABLE users (
          name text PRIMARY KEY,
          # bcrypt
          password text
        );

        CREATE INDEX ON users (password);

Datastores

A DataStore names a keyspace on a Cluster and the schema directory its statements come from:

        cluster := cassschema.NewCluster([]string{"10.0.0.1", "10.0.0.2"}, 9042)
        users := cassschema.NewDataStore("users", cluster, "users",
            "{'class': 'SimpleStrategy', 'replication_factor': 3}")

The schema directory defaults to the datastore's name, and can be changed by assigning Schema.
Datastores that share a Cluster share its connector. Each DataStore opens at most one session not
bound to a keyspace, used to create and drop the keyspace, and one bound to its keyspace, used for
everything else.

Running

A Runner dispatches operations to its datastores by name:

        runner, err := cassschema.NewRunner(cassschema.Options{
            DataStores:     []*cassschema.DataStore{users},
            SchemaBasePath: "cass_schema",
            Logger:         logger,
        })
        if err != nil { ... }
        defer runner.Close()

        err = runner.Create("users")                     // keyspace, then schema.cql
        err = runner.Migrate("users", "add_last_login")  // migrations/add_last_login.cql
        err = runner.Drop("users")

Statements run one at a time, in file order. The first one to fail stops the run, and is reported
as a *SchemaError carrying the statement text and the driver's error. Nothing is rolled back. When
DisallowDrops is set, Drop and DropAll fail with ErrDropsDisallowed without contacting the cluster.

Programs that want a single shared runner can install one with Setup and fetch it anywhere with
Default.

Testing

FakeCassandra returns an in-memory cluster that understands keyspace, table, type and index
definitions well enough to catch mistakes in statement files:

        fake := cassschema.FakeCassandra()
        users.Cluster = cassschema.ClusterFromConnector(fake)
        if err := runner.Create("users"); err != nil { ... }
        fmt.Println(fake.Tables("users"))

The package's own tests run against the fake by default, or against a live cluster given with
-cluster.
*/
package cassschema
