package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/vidbatch/internal/types"
)

// Flag names
const (
	flagProjectID = "project-id"
	flagTemplate  = "template"
	flagContext   = "context"
	flagFields    = "fields"
)

func newPromptsCmd() *cobra.Command {
	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage prompt templates",
	}
	promptsCmd.AddCommand(newGetPromptCmd())
	promptsCmd.AddCommand(newSetPromptCmd())
	promptsCmd.AddCommand(newEnhancePromptCmd())
	promptsCmd.AddCommand(newSuggestPromptCmd())
	return promptsCmd
}

func newGetPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the template of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagProjectID)
			if err != nil {
				return err
			}

			resp, err := apiClient.GetPrompt(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error getting prompt: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().UintP(flagProjectID, "p", 0, "Project ID")
	markRequired(cmd, flagProjectID)
	return cmd
}

func newSetPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the template of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagProjectID)
			if err != nil {
				return err
			}
			template, err := cmd.Flags().GetString(flagTemplate)
			if err != nil {
				return fmt.Errorf("error getting template flag: %w", err)
			}

			resp, err := apiClient.SavePrompt(context.Background(), id, types.SavePromptRequest{Template: template})
			if err != nil {
				return fmt.Errorf("error saving prompt: %w", err)
			}
			if len(resp.Missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: placeholders without a matching column: %v\n", resp.Missing)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().UintP(flagProjectID, "p", 0, "Project ID")
	cmd.Flags().StringP(flagTemplate, "t", "", "Template with {{column}} placeholders")
	markRequired(cmd, flagProjectID, flagTemplate)
	return cmd
}

func newEnhancePromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enhance",
		Short: "Improve the template of a project with the text model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagProjectID)
			if err != nil {
				return err
			}
			extra, err := cmd.Flags().GetString(flagContext)
			if err != nil {
				return fmt.Errorf("error getting context flag: %w", err)
			}

			resp, err := apiClient.EnhancePrompt(context.Background(), id, types.EnhancePromptRequest{Context: extra})
			if err != nil {
				return fmt.Errorf("error enhancing prompt: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().UintP(flagProjectID, "p", 0, "Project ID")
	cmd.Flags().StringP(flagContext, "c", "", "Extra guidance for the text model")
	markRequired(cmd, flagProjectID)
	return cmd
}

func newSuggestPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Improve an arbitrary template without saving it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			template, err := cmd.Flags().GetString(flagTemplate)
			if err != nil {
				return fmt.Errorf("error getting template flag: %w", err)
			}
			fields, err := cmd.Flags().GetStringSlice(flagFields)
			if err != nil {
				return fmt.Errorf("error getting fields flag: %w", err)
			}
			extra, err := cmd.Flags().GetString(flagContext)
			if err != nil {
				return fmt.Errorf("error getting context flag: %w", err)
			}

			resp, err := apiClient.SuggestPrompt(context.Background(), types.SuggestPromptRequest{
				Template: template,
				Fields:   fields,
				Context:  extra,
			})
			if err != nil {
				return fmt.Errorf("error suggesting prompt: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringP(flagTemplate, "t", "", "Template with {{column}} placeholders")
	cmd.Flags().StringSliceP(flagFields, "f", nil, "Column names the template may use")
	cmd.Flags().StringP(flagContext, "c", "", "Extra guidance for the text model")
	markRequired(cmd, flagTemplate, flagFields)
	return cmd
}
