package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"nextgate-hq/relay/pkg/cli"
	reltls "nextgate-hq/relay/pkg/security/tls"
)

var certsGenerateFlags struct {
	hosts    string
	validity int
	output   string
	force    bool
}

var certsInfoFlags struct {
	format string
}

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage listener TLS certificates",
	Long: `Manage the certificates served by the public and management listeners.

Subcommands:
  generate - Generate a self-signed certificate for testing
  info     - Display certificate details and expiry

Examples:
  relay certs generate --host "localhost,127.0.0.1"
  relay certs info certs/tls.crt`,
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a self-signed certificate",
	Long: `Write tls.crt and tls.key (ECDSA P-256) to the output directory.
Point public.tls.cert_file and public.tls.key_file (or TLS_CERT_FILE and
TLS_KEY_FILE) at them to serve HTTPS.

Self-signed certificates are for testing only.

Examples:
  relay certs generate --host localhost
  relay certs generate --host "relay.internal,10.0.0.5" --validity 30 --output /etc/relay/tls`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts := splitHosts(certsGenerateFlags.hosts)
		validity := time.Duration(certsGenerateFlags.validity) * 24 * time.Hour
		certPEM, keyPEM, err := reltls.GenerateSelfSigned(hosts, validity)
		if err != nil {
			return cli.NewCommandError("certs generate", err)
		}

		out := certsGenerateFlags.output
		if err := os.MkdirAll(out, 0o755); err != nil {
			return cli.NewCommandError("certs generate", err)
		}
		certFile := filepath.Join(out, "tls.crt")
		keyFile := filepath.Join(out, "tls.key")
		if !certsGenerateFlags.force {
			for _, f := range []string{certFile, keyFile} {
				if _, err := os.Stat(f); err == nil {
					return cli.NewCommandError("certs generate", fmt.Errorf("%s exists (use --force to overwrite)", f))
				}
			}
		}
		if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
			return cli.NewCommandError("certs generate", err)
		}
		if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
			return cli.NewCommandError("certs generate", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s and %s\n", certFile, keyFile)
		return nil
	},
}

var certsInfoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Display certificate details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(certsInfoFlags.format)
		if err != nil {
			return err
		}
		cert, err := reltls.ReadCertificateFile(args[0])
		if err != nil {
			return cli.NewCommandError("certs info", err)
		}

		info := reltls.ExtractCertificateInfo(cert)
		fields := cli.Fields{
			{Key: "Subject", Value: info.Subject},
			{Key: "Issuer", Value: info.Issuer},
			{Key: "Serial", Value: info.SerialNumber},
			{Key: "DNS Names", Value: strings.Join(info.DNSNames, ", ")},
			{Key: "IP Addresses", Value: strings.Join(info.IPAddresses, ", ")},
			{Key: "Not Before", Value: info.NotBefore.UTC().Format(time.RFC3339)},
			{Key: "Not After", Value: info.NotAfter.UTC().Format(time.RFC3339)},
			{Key: "Expires", Value: humanize.Time(info.NotAfter)},
			{Key: "Signature", Value: info.SignatureAlgorithm},
		}
		if err := reltls.ValidateX509Certificate(cert); err != nil {
			fields = append(fields, cli.Field{Key: "Status", Value: err.Error()})
		} else if _, warning := reltls.CheckCertificateExpiration(cert); warning != "" {
			fields = append(fields, cli.Field{Key: "Status", Value: warning})
		} else {
			fields = append(fields, cli.Field{Key: "Status", Value: "valid"})
		}

		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), fields)
	},
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.AddCommand(certsGenerateCmd, certsInfoCmd)

	certsGenerateCmd.Flags().StringVar(&certsGenerateFlags.hosts, "host", "localhost,127.0.0.1", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().IntVar(&certsGenerateFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().StringVarP(&certsGenerateFlags.output, "output", "o", "certs", "output directory")
	certsGenerateCmd.Flags().BoolVar(&certsGenerateFlags.force, "force", false, "overwrite existing files")

	certsInfoCmd.Flags().StringVarP(&certsInfoFlags.format, "format", "f", "text", "output format: text, json, yaml")
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
