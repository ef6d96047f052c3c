package cassschema_test

import "fmt"

import "github.com/logan/cassschema"

func ExampleRunner() {
	fake := cassschema.FakeCassandra()
	cluster := cassschema.ClusterFromConnector(fake)

	runner, err := cassschema.NewRunner(cassschema.Options{
		DataStores: []*cassschema.DataStore{
			cassschema.NewDataStore("test_datastore", cluster, "example",
				"{'class': 'SimpleStrategy', 'replication_factor': 1}"),
		},
		SchemaBasePath: "testdata/cass_schema",
		DisallowDrops:  true,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer runner.Close()

	if err := runner.CreateAll(); err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := runner.Migrate("test_datastore", "migration"); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(fake.Tables("example"))
	fmt.Println(fake.Columns("example", "test"))
	fmt.Println(runner.Drop("test_datastore"))
	// Output:
	// [test test2]
	// map[id:text new_column:int value:int]
	// drop commands have been disabled by the disallow_drops option
}
