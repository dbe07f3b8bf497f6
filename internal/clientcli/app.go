package clientcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"eddisonso.com/go-weed/internal/config"
	"eddisonso.com/go-weed/internal/journal"
	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
	"eddisonso.com/go-weed/pkg/weedlog"
)

const commandTimeout = 120 * time.Second

var shellCommands = []string{"assign", "put", "upload", "get", "rm", "lookup", "history", "version", "help", "exit", "quit"}

// App holds the state shared by the commands of one process: the resolved
// configuration, the SDK client and the upload journal.
type App struct {
	cfg     *config.Config
	logger  *weedlog.Logger
	client  *weed.Client
	journal *journal.Journal

	out    io.Writer
	errOut io.Writer
}

// NewApp returns an App writing command output to out and diagnostics to errOut.
func NewApp(out, errOut io.Writer) *App {
	return &App{out: out, errOut: errOut}
}

// init connects the App to the cluster described by cfg. Later calls are
// no-ops so shell lines reuse the first connection.
func (a *App) init(cfg *config.Config) error {
	if a.client != nil {
		return nil
	}

	logger, err := weedlog.NewLogger(weedlog.Config{
		Source: "weed-client",
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Output: a.errOut,
	})
	if err != nil {
		return err
	}

	client, err := weed.New(cfg.Master, cfg.ClientOptions(logger.Logger)...)
	if err != nil {
		logger.Close()
		return fmt.Errorf("invalid master address: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.client = client
	logger.Debug("client ready", "master", cfg.Master, "config", cfg.File)
	return nil
}

// uploads opens the journal on first use.
func (a *App) uploads() (*journal.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := journal.Open(a.cfg.JournalDir)
	if err != nil {
		return nil, err
	}
	a.journal = j
	return j, nil
}

// Close releases the journal and the log file.
func (a *App) Close() error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
		a.journal = nil
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}

func getContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// runShell reads commands until exit or EOF and runs each through the same
// command tree as the command line.
func (a *App) runShell() error {
	fmt.Fprintf(a.out, "Using master %s\n", a.client.MasterAddress())
	fmt.Fprintln(a.out, "Type 'help' for commands, 'exit' to quit")
	fmt.Fprintln(a.out)

	items := make([]readline.PrefixCompleterInterface, 0, len(shellCommands))
	for _, name := range shellCommands {
		switch name {
		case "get", "rm", "lookup":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(a.completeFileID)))
		default:
			items = append(items, readline.PcItem(name))
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "weed> ",
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			break
		}

		args := parseArgs(strings.TrimSpace(line))
		if len(args) == 0 {
			continue
		}
		if done := a.dispatch(args); done {
			break
		}
	}

	fmt.Fprintln(a.out, "Goodbye!")
	return nil
}

// dispatch runs one shell line and reports whether the shell should exit.
func (a *App) dispatch(args []string) bool {
	switch args[0] {
	case "exit", "quit":
		return true
	case "help":
		printShellHelp(a.out)
		return false
	case "shell":
		fmt.Fprintln(a.errOut, "Error: already in a shell")
		return false
	}

	cmd := NewRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
	}
	return false
}

// completeFileID offers the file ids recorded in the journal.
func (a *App) completeFileID(line string) []string {
	parts := strings.Fields(line)
	prefix := ""
	if len(parts) > 1 {
		prefix = parts[len(parts)-1]
	}

	j, err := a.uploads()
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	records, err := j.All(ctx)
	if err != nil {
		return nil
	}

	var completions []string
	for _, r := range records {
		if strings.HasPrefix(r.FileID, prefix) {
			completions = append(completions, r.FileID)
		}
	}
	return completions
}
