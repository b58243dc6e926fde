/*
Package cli provides helpers shared by the relay commands.

Output Formatting:

Commands accept --format text|json|yaml and render their results through a
Formatter. Fields keeps labelled values in order in every format:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, cli.Fields{
		{Key: "Version", Value: version},
	})

Signal Handling:

SetupSignalHandler returns a context canceled on SIGINT or SIGTERM, which
the run command passes to the server for graceful draining:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	return srv.Run(ctx)

Errors:

ConfigError and CommandError carry enough context for main to print a
single-line failure and exit non-zero.
*/
package cli
