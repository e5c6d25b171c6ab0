package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/vidbatch/internal/db/models"
)

// Flag names
const (
	flagName  = "name"
	flagFile  = "file"
	flagID    = "id"
	flagPage  = "page"
	flagLimit = "limit"
)

// projectOutput represents the filtered output for a project
type projectOutput struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// projectListOutput represents the filtered output for a list of projects
type projectListOutput struct {
	Projects []projectOutput `json:"projects"`
}

// uploadOutput represents the filtered output of an upload
type uploadOutput struct {
	Project   projectOutput       `json:"project"`
	Columns   []string            `json:"columns"`
	TotalRows int                 `json:"total_rows"`
	Template  string              `json:"template"`
	Preview   []map[string]string `json:"preview,omitempty"`
}

func toProjectOutput(p models.Project) projectOutput {
	return projectOutput{
		ID:        p.ID,
		Name:      p.Name,
		Status:    p.Status.String(),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func newProjectsCmd() *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}
	projectsCmd.AddCommand(newUploadProjectCmd())
	projectsCmd.AddCommand(newListProjectsCmd())
	projectsCmd.AddCommand(newGetProjectCmd())
	projectsCmd.AddCommand(newGenerateCmd())
	return projectsCmd
}

func newUploadProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Create a project from a CSV or Excel file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString(flagFile)
			if err != nil {
				return fmt.Errorf("error getting file flag: %w", err)
			}
			name, err := cmd.Flags().GetString(flagName)
			if err != nil {
				return fmt.Errorf("error getting name flag: %w", err)
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("error reading data file: %w", err)
			}

			resp, err := apiClient.UploadProject(context.Background(), name, filepath.Base(path), content)
			if err != nil {
				return fmt.Errorf("error uploading project: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), uploadOutput{
				Project:   toProjectOutput(resp.Project),
				Columns:   resp.Columns,
				TotalRows: resp.TotalRows,
				Template:  resp.Template,
				Preview:   resp.Preview,
			})
		},
	}
	cmd.Flags().StringP(flagFile, "f", "", "Path of the CSV or Excel file")
	cmd.Flags().StringP(flagName, "n", "", "Project name (defaults to the file name)")
	markRequired(cmd, flagFile)
	return cmd
}

func newListProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := cmd.Flags().GetInt(flagPage)
			if err != nil {
				return fmt.Errorf("error getting page flag: %w", err)
			}
			limit, err := cmd.Flags().GetInt(flagLimit)
			if err != nil {
				return fmt.Errorf("error getting limit flag: %w", err)
			}
			if page < 1 {
				page = 1
			}
			if limit < 1 {
				limit = models.DefaultLimit
			}

			projects, err := apiClient.ListProjects(context.Background(), &models.ListOptions{
				Limit:  limit,
				Offset: (page - 1) * limit,
			})
			if err != nil {
				return fmt.Errorf("error listing projects: %w", err)
			}

			output := projectListOutput{Projects: make([]projectOutput, len(projects))}
			for i, project := range projects {
				output.Projects[i] = toProjectOutput(project)
			}
			return printJSON(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().IntP(flagPage, "p", 1, "Page number for pagination")
	cmd.Flags().IntP(flagLimit, "l", models.DefaultLimit, "Projects per page")
	return cmd
}

func newGetProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagID)
			if err != nil {
				return err
			}

			project, err := apiClient.GetProject(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error getting project: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), toProjectOutput(project))
		},
	}
	cmd.Flags().UintP(flagID, "i", 0, "Project ID")
	markRequired(cmd, flagID)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Start generating one video per data row",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagID)
			if err != nil {
				return err
			}

			resp, err := apiClient.GenerateVideos(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error starting generation: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().UintP(flagID, "i", 0, "Project ID")
	markRequired(cmd, flagID)
	return cmd
}
