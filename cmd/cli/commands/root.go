// Package commands implements the vidbatch command line interface
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/vidbatch/pkg/api/v1/client"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagTimeout       = "timeout"
)

// environment variable names
const (
	envServerAddress = "VIDBATCH_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
	// requestTimeout bounds every API call except waits
	requestTimeout time.Duration
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress
	opts.Timeout = requestTimeout

	apiClient, err = client.NewClient(opts)
	return err
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vidbatch",
		Short: "vidbatch CLI - A command line interface for the vidbatch API",
		Long: `vidbatch CLI uploads data files, edits prompt templates and follows the
batch video generation of projects through the vidbatch API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flag > Env Var > Default
			if !cmd.Flags().Changed(flagServerAddress) {
				if envAddr := os.Getenv(envServerAddress); envAddr != "" {
					serverAddress = envAddr
				}
			}
			if serverAddress == "" {
				return fmt.Errorf("server address cannot be empty")
			}
			return initClient()
		},
	}

	root.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL,
		"Address of the vidbatch API server (env: "+envServerAddress+")")
	root.PersistentFlags().DurationVar(&requestTimeout, flagTimeout, client.DefaultTimeout, "API request timeout")

	root.AddCommand(newProjectsCmd())
	root.AddCommand(newPromptsCmd())
	root.AddCommand(newJobsCmd())
	return root
}

// Execute builds the command tree and runs it
func Execute() error {
	return NewRootCmd().Execute()
}

// printJSON pretty prints v to the command's output
func printJSON(w io.Writer, v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(prettyJSON))
	return err
}

// getID reads a required positive id flag
func getID(cmd *cobra.Command, name string) (uint, error) {
	id, err := cmd.Flags().GetUint(name)
	if err != nil {
		return 0, fmt.Errorf("error getting %s flag: %w", name, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Errorf("failed to mark %s flag as required for %s command: %w", name, cmd.Name(), err))
		}
	}
}
