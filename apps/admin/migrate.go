package main

import (
	"github.com/trezcool/ratiba/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	return runMigrationsFunc(cli.db, args[0], args[1:]...)
}
