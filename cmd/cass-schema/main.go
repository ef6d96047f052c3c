// Command cass-schema creates, drops and migrates the Cassandra keyspaces described by a
// configuration file.
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"

	"github.com/logan/cassschema"
	"github.com/logan/cassschema/config"
)

const (
	exitOK = iota
	exitError
	exitConfig
	exitNotFound
	exitMissingFile
	exitSchema
	exitDropsDisallowed
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var schemaErr *cassschema.SchemaError
	var cfgErr configError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr),
		errors.Is(err, config.ErrInvalid),
		errors.Is(err, cassschema.ErrClusterNotConfigured):
		return exitConfig
	case errors.Is(err, cassschema.ErrDropsDisallowed):
		return exitDropsDisallowed
	case errors.Is(err, cassschema.ErrDataStoreNotFound):
		return exitNotFound
	case errors.As(err, &schemaErr):
		return exitSchema
	case errors.Is(err, fs.ErrNotExist):
		return exitMissingFile
	}
	return exitError
}
