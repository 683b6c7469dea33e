package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nuacha-app/nuacha/internal/activity"
	"github.com/nuacha-app/nuacha/internal/categories"
	"github.com/nuacha-app/nuacha/internal/config"
	"github.com/nuacha-app/nuacha/internal/gitops"
	"github.com/nuacha-app/nuacha/internal/model"
)

func newInitCommand() *cobra.Command {
	var name string
	var kind string
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Nuacha data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			k := model.FamilyKind(kind)
			if !k.Valid() {
				return fmt.Errorf("unknown kind %q, want household or business", kind)
			}
			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, name, k, git)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "household or business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&kind, "kind", string(model.KindHousehold), "household or business")
	cmd.Flags().BoolVar(&git, "git", false, "track the directory in a git repository")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, name string, kind model.FamilyKind, git bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	dirs := []string{
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name, kind)
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	svc := categories.NewService(categories.DefaultChart(kind))
	if err := svc.Save(dir); err != nil {
		return fmt.Errorf("writing category chart: %w", err)
	}

	gitignore := ".env\n*.db\nreceipts/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if err := activity.Append(dir, activity.Entry{
		Actor:   currentActor(),
		Action:  "init",
		Subject: name,
		Details: string(kind),
	}); err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}

	if git {
		if err := gitops.Init(ctx, dir); err != nil {
			return err
		}
		hash, err := gitops.Commit(ctx, dir, "init: Initialize "+name, gitops.DefaultAuthor)
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		fmt.Fprintf(out, "Initialized Nuacha %s %q at %s (%s)\n", kind, name, dir, hash)
		return nil
	}

	fmt.Fprintf(out, "Initialized Nuacha %s %q at %s\n", kind, name, dir)
	return nil
}

func currentActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "nuacha"
}
