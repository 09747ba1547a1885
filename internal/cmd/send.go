package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/config"
	"github.com/smsgate/smsgate/internal/core"
	"github.com/smsgate/smsgate/internal/observability"
	"github.com/smsgate/smsgate/internal/output"
)

var (
	sendPhone  string
	sendSender string
	sendText   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one SMS through the configured provider",
	Long: `Send one SMS using the same validation, cooldown and provider path as
the HTTP server. Rate limiting applies to HTTP callers only.

Examples:
  smsgate send --phone 09171234567 --sender ACME --text "Your code is 1234"
  smsgate send --phone +639171234567 --sender ACME --text hi --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		outPath, outDir, err := resolveOutputTargets(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.Load(ctx)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Pipeline logs go to the console for one-shot sends.
		observability.InitServerLogger(config.AppName, cfg.Logging.Level, "simple")

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close() // nolint:errcheck // best-effort cleanup

		if !p.providerConfigured {
			observability.CLILogger.Warn("Provider credentials are not configured", zap.String("driver", p.gateway.Name()))
		}

		result, err := p.orchestrator.Send(ctx, core.SendRequest{
			Destination: sendPhone,
			SenderLabel: sendSender,
			Body:        sendText,
		})
		if err != nil {
			return err
		}

		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("send.%s.%s", sanitizeFilename(result.MessageID), output.Extension(format)))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatResult(result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendPhone, "phone", "", "destination phone number")
	sendCmd.Flags().StringVar(&sendSender, "sender", "", "sender label shown in the message")
	sendCmd.Flags().StringVar(&sendText, "text", "", "message body (up to 160 characters)")
	addOutputFlags(sendCmd)
}
