/*
Package cli provides command-line interface utilities for Tollgate.

Commands wrap failures in CommandError so the caller can tell which
subcommand failed, and configuration problems in ConfigError pointing at
the offending field:

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
	    return cli.NewConfigError("", err.Error())
	}

ExitCodeFor maps an error chain to a process exit code: config errors
exit with 2, everything else with 1, so wrapper scripts can distinguish
a bad deployment from a runtime failure:

	if err := rootCmd.Execute(); err != nil {
	    fmt.Fprintln(os.Stderr, err)
	    os.Exit(cli.ExitCodeFor(err))
	}
*/
package cli
