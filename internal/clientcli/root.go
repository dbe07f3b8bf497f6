package clientcli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"eddisonso.com/go-weed/internal/config"
)

// NewRootCommand builds the weed-client command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "weed-client",
		Short:         "Store and fetch files on a master/volume blob cluster",
		Long:          `weed-client asks the master for file ids and moves file content to and from the volume servers that own them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return app.init(cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.weed-client.yaml)")
	pf.String(config.KeyMaster, "localhost:9333", "master address, host[:port]")
	pf.Duration(config.KeyTimeout, 60*time.Second, "per request timeout")
	pf.Bool(config.KeyPublicURL, false, "talk to volume servers through their public url")
	pf.String(config.KeyLogLevel, "warn", "log level: debug, info, warn or error")
	pf.String(config.KeyJournalDir, "", "directory of the upload journal (default is $HOME/.weed-client/journal)")

	root.AddCommand(
		newAssignCommand(app),
		newPutCommand(app),
		newUploadCommand(app),
		newGetCommand(app),
		newRmCommand(app),
		newLookupCommand(app),
		newHistoryCommand(app),
		newShellCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	app := NewApp(os.Stdout, os.Stderr)
	defer app.Close()

	if err := NewRootCommand(app).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
