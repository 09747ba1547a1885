package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/smsgate/smsgate/internal/core/store"
	"github.com/smsgate/smsgate/internal/output"
)

var sendsListLimit int

var sendsCmd = &cobra.Command{
	Use:   "sends",
	Short: "Inspect the send audit log",
}

var sendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent send attempts",
	Long: `List recent send attempts recorded in the audit log, newest first.
Requires audit.enabled; the log lives at audit.path or audit.url.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		outPath, outDir, err := resolveOutputTargets(cmd)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListSends(cmd.Context(), sendsListLimit)
		if err != nil {
			return err
		}

		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("sends.list.%s", output.Extension(format)))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if len(records) == 0 && format == output.FormatTable {
			lines := []string{"Recent Sends", "", "(no recorded send attempts)"}
			_, _ = fmt.Fprint(sink.writer, ascii.DrawBox(strings.Join(lines, "\n"), 0))
			return nil
		}

		rendered, err := output.NewFormatter(format).FormatSends(records)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	sendsListCmd.Flags().IntVar(&sendsListLimit, "limit", store.DefaultListLimit, "maximum number of records to show")
	addOutputFlags(sendsListCmd)

	sendsCmd.AddCommand(sendsListCmd)
	rootCmd.AddCommand(sendsCmd)
}
