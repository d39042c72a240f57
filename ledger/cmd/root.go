package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/plenert/ledger"
	"github.com/plenert/ledger/ledger/config"
	"github.com/plenert/ledger/ledger/logger"
	"github.com/plenert/ledger/ledger/shell"
	"github.com/plenert/ledger/ledger/store"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	ledgerFilePath string
	logLevel       string
	pinFlag        string
)

// Set up by the root command before any subcommand runs.
var (
	cfg       *config.Config
	appLog    *slog.Logger
	directory *ledger.Directory
	loadErr   error
	input     *bufio.Reader
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "PIN protected account ledger",
	Long: `Ledger keeps savings and current accounts, protected by a 4 digit PIN,
in a single data file. Without a subcommand an interactive menu is started.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		switch {
		case errors.Is(loadErr, ledger.ErrPartialLoad):
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", loadErr)
		case loadErr != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; starting with no accounts\n", loadErr)
		}
		opts := shell.OptionsFromConfig(cfg, appLog)
		return shell.New(directory, cmd.InOrStdin(), cmd.OutOrStdout(), opts).Run()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main().
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:         rootCmd,
		Headings:        cc.HiCyan + cc.Bold + cc.Underline,
		Commands:        cc.HiYellow + cc.Bold,
		Example:         cc.Italic,
		ExecName:        cc.Bold,
		Flags:           cc.Bold,
		NoExtraNewlines: true,
		NoBottomNewline: true,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./ledger.toml or $HOME/.config/ledger/ledger.toml).")
	rootCmd.PersistentFlags().StringVarP(&ledgerFilePath, "file", "f", "", "Ledger data file (.json, .toml, optionally .br compressed).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().StringVar(&pinFlag, "pin", "", "Account PIN (prompted for when omitted).")
}

// setup loads configuration and the account directory.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if ledgerFilePath != "" {
		c.DataFile = ledgerFilePath
	}
	if logLevel != "" {
		c.Logging.Level = strings.ToLower(logLevel)
	}
	cfg = c
	appLog = logger.New(cmd.ErrOrStderr(), c)
	input = bufio.NewReader(cmd.InOrStdin())

	st := store.New(c.DataFile)
	appLog.Debug("opening ledger", "path", st.Path(), "format", st.Format())
	directory, loadErr = ledger.Open(st, ledger.WithLogger(appLog), ledger.WithPrefix(c.AccountPrefix))
	return nil
}

// readLine prompts on stderr and reads one line from the command input.
func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := input.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPIN returns the --pin flag or asks for the PIN, without echo when
// the input is a terminal.
func readPIN(cmd *cobra.Command, prompt string) (string, error) {
	if pinFlag != "" {
		return pinFlag, nil
	}
	return askSecret(cmd, prompt)
}

// askSecret reads a line without echo when the input is a terminal.
func askSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && shell.IsTerminal(f) {
		return shell.ReadSecret(f, cmd.ErrOrStderr(), prompt)
	}
	return readLine(cmd, prompt)
}

// checkLoaded refuses to work on a ledger file that could not be read, since
// saving would overwrite it. Unreadable single accounts only warn; the store
// writes them back untouched.
func checkLoaded(cmd *cobra.Command) error {
	if errors.Is(loadErr, ledger.ErrPartialLoad) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", loadErr)
		return nil
	}
	return loadErr
}

// authenticate opens the account named by number after asking for its PIN.
func authenticate(cmd *cobra.Command, number string) (*ledger.Account, error) {
	if err := checkLoaded(cmd); err != nil {
		return nil, err
	}
	pin, err := readPIN(cmd, "PIN: ")
	if err != nil {
		return nil, err
	}
	acc, err := directory.Authenticate(number, pin)
	if err != nil {
		appLog.Warn("authentication failed", "account", number, "error", err)
		return nil, fmt.Errorf("%s: %w", number, err)
	}
	return acc, nil
}

func money(d decimal.Decimal) string {
	return shell.Money(cfg.CurrencySymbol, d)
}
