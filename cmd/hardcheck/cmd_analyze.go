package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/hardcheck/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/hardcheck/internal/domain-orchestrators"
	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/services"
	"github.com/ochairo/hardcheck/internal/external-adapters/gpg"
	"github.com/ochairo/hardcheck/internal/external-adapters/logging"
	"github.com/ochairo/hardcheck/internal/external-adapters/mmap"
	"github.com/ochairo/hardcheck/internal/external-adapters/yaml"
)

// errFilesFailed is returned when at least one input could not be analyzed
var errFilesFailed = errors.New("some files could not be analyzed")

type analyzeOptions struct {
	configPath string
	color      string
	sysroot    string
	libcPath   string
	libcSpec   string
	noLibc     bool
	jobs       int
	format     string
	output     string
	recursive  bool
	verbose    bool

	signKey           string
	signPassphraseEnv string
	signatureOut      string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "hardcheck [flags] <file>...",
		Short: "Report the hardening features of ELF, PE and archive files",
		Long: `hardcheck inspects compiled binaries and reports, per file, which hardening
features they use: ASLR, stack protection, RELRO, immediate binding and
FORTIFY_SOURCE for ELF; DEP, Control Flow Guard, SafeSEH, checksum, signature,
manifest and App Container flags for PE; stack protection for static libraries.

Markers: + present, ! absent, ~ probably present, ? unknown.`,
		Example: `  hardcheck /usr/bin/ssh /usr/lib/x86_64-linux-gnu/libssl.so.3
  hardcheck --sysroot /opt/sysroots/armhf rootfs/bin/busybox
  hardcheck --libc-spec lsb5 --format json build/*.so
  hardcheck --sign-key release.asc --output report.txt --signature-out report.txt.asc app.exe`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML run configuration file (default ./"+yaml.DefaultConfigName+")")
	f.StringVarP(&opts.color, "color", "c", string(entities.ColorAuto), "Use color in output: auto, always or never")
	f.StringVarP(&opts.sysroot, "sysroot", "s", "", "Look up the C runtime library below this system root")
	f.StringVarP(&opts.libcPath, "libc", "l", "", "Use this C runtime library file")
	f.StringVarP(&opts.libcSpec, "libc-spec", "i", "", "Assume the C runtime of this specification, see 'hardcheck specs'")
	f.BoolVar(&opts.noLibc, "no-libc", false, "Skip C runtime checks, FORTIFY-SOURCE becomes unknown")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Number of files analyzed in parallel (default: number of CPUs)")
	f.StringVarP(&opts.format, "format", "f", string(entities.OutputText), "Report format: text, table, json or yaml")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of standard output")
	f.BoolVarP(&opts.recursive, "recursive", "r", false, "Analyze every regular file below directory arguments")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug messages")
	f.StringVar(&opts.signKey, "sign-key", "", "Armored OpenPGP private key used to sign the report")
	f.StringVar(&opts.signPassphraseEnv, "sign-passphrase-env", "", "Environment variable holding the signing key passphrase")
	f.StringVar(&opts.signatureOut, "signature-out", "", "Write the detached armored report signature to this file")

	cmd.MarkFlagsMutuallyExclusive("sysroot", "libc", "libc-spec", "no-libc")
	cmd.MarkFlagsRequiredTogether("sign-key", "signature-out")

	cmd.AddCommand(newSpecsCommand(), newVerifyReportCommand(), newVersionCommand())
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions, args []string) error {
	config, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	paths, err := gateways.NewInputFinder(opts.recursive).Expand(args)
	if err != nil {
		return err
	}

	// A report that leaves the terminal carries no color escapes
	if opts.output != "" || opts.signKey != "" {
		config.Color = entities.ColorNever
	}

	logger := logging.New(cmd.ErrOrStderr(), config.Verbose, config.Color)
	logger.Debug("Run configuration",
		interfaces.F("libc_mode", string(config.Libc.Mode)),
		interfaces.F("format", string(config.Format)),
		interfaces.F("jobs", config.Jobs))

	var signer *gpg.Signer
	if opts.signKey != "" {
		if signer, err = gpg.NewSignerFromFile(opts.signKey, passphrase(opts.signPassphraseEnv)); err != nil {
			return err
		}
	}

	// Layer 1: gateways (infrastructure)
	loader := mmap.NewLoader()
	resolver, err := gateways.NewLibcResolverGateway(config.Libc, loader, logger)
	if err != nil {
		return err
	}
	analyzer := gateways.NewBinaryAnalyzerGateway(resolver, logger)

	// Layer 2: service (business logic)
	analysisService := services.NewAnalysisService(loader, analyzer, logger)

	// Layer 3: orchestrator (use case)
	orchestrator := orchestrators.NewAnalysisOrchestrator(analysisService, config.Jobs, logger)

	startTime := time.Now()
	results := orchestrator.AnalyzeAll(cmd.Context(), paths)
	summary := orchestrators.Summarize(results, time.Since(startTime))
	logger.Debug("Analysis finished", interfaces.F("summary", summary.String()))

	var report bytes.Buffer
	if err := renderReport(&report, results, config.Format, newPalette(config.Color)); err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), opts.output, report.Bytes()); err != nil {
		return err
	}

	if signer != nil {
		if err := writeSignature(signer, opts.signatureOut, report.Bytes()); err != nil {
			return err
		}
		logger.Info("Report signed",
			interfaces.F("signature", opts.signatureOut),
			interfaces.F("fingerprint", signer.Fingerprint()))
	}

	if entities.AnyFailed(results) {
		return fmt.Errorf("%d of %d files: %w", summary.Failed, summary.Files, errFilesFailed)
	}
	return nil
}

// resolveConfig loads the configuration file and applies the flags set on the command line
func resolveConfig(cmd *cobra.Command, opts *analyzeOptions) (entities.RunConfig, error) {
	workDir, err := os.Getwd()
	if err != nil {
		workDir = ""
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = ""
	}

	config, _, err := yaml.NewConfigRepository(workDir, configDir).Load(opts.configPath)
	if err != nil {
		return entities.RunConfig{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("color") {
		if config.Color, err = entities.ParseColorMode(opts.color); err != nil {
			return entities.RunConfig{}, err
		}
	}
	if flags.Changed("format") {
		if config.Format, err = entities.ParseOutputFormat(opts.format); err != nil {
			return entities.RunConfig{}, err
		}
	}
	if flags.Changed("jobs") {
		if opts.jobs < 0 {
			return entities.RunConfig{}, fmt.Errorf("--jobs must not be negative, got %d", opts.jobs)
		}
		config.Jobs = opts.jobs
	}
	if flags.Changed("verbose") {
		config.Verbose = opts.verbose
	}

	switch {
	case flags.Changed("sysroot"):
		config.Libc = entities.LibcConfig{Mode: entities.LibcModeSysroot, Sysroot: opts.sysroot}
	case flags.Changed("libc"):
		config.Libc = entities.LibcConfig{Mode: entities.LibcModePath, Path: opts.libcPath}
	case flags.Changed("libc-spec"):
		spec, err := entities.ParseLibcSpec(opts.libcSpec)
		if err != nil {
			return entities.RunConfig{}, err
		}
		config.Libc = entities.LibcConfig{Mode: entities.LibcModeSpec, Spec: spec}
	case flags.Changed("no-libc") && opts.noLibc:
		config.Libc = entities.LibcConfig{Mode: entities.LibcModeNone}
	}

	return config, config.Libc.Validate()
}

func passphrase(envVar string) []byte {
	if envVar == "" {
		return nil
	}
	return []byte(os.Getenv(envVar))
}

func writeReport(stdout io.Writer, path string, report []byte) error {
	if path == "" {
		_, err := stdout.Write(report)
		return err
	}
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeSignature(signer *gpg.Signer, path string, report []byte) error {
	var sig bytes.Buffer
	if err := signer.Sign(&sig, bytes.NewReader(report)); err != nil {
		return err
	}
	if err := os.WriteFile(path, sig.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}
	return nil
}
