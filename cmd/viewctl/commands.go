package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/logishift/viewrank/internal/api/objects"
	"github.com/logishift/viewrank/internal/db"
	"github.com/logishift/viewrank/internal/views"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the view counter table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		options := db.NewOptionRepository(db.NewRepository(e.db.DB))
		applied, err := views.NewInitializer(e.db.DB, options).EnsureSchema(cmd.Context())
		if err != nil {
			return err
		}
		if applied {
			fmt.Fprintf(cmd.OutOrStdout(), "view counter schema upgraded to %s\n", views.SchemaVersion)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "view counter schema already at %s\n", views.SchemaVersion)
		}
		return nil
	},
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the most viewed posts",
	Long: `Print the most viewed posts over a trailing window.

Examples:
  viewctl top
  viewctl top --days 30 --limit 20
  viewctl top --term-id 12 --taxonomy category`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		termID, _ := cmd.Flags().GetInt64("term-id")
		taxonomy, _ := cmd.Flags().GetString("taxonomy")

		e, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		posts := db.NewPostRepository(db.NewRepository(e.db.DB))
		ranker := views.NewRanker(e.db.DB, posts, clockwork.NewRealClock(), e.loc,
			views.WithDefaults(e.cfg.Popular.DefaultDays, e.cfg.Popular.DefaultLimit))

		q := views.Query{Days: days, Limit: limit}
		if termID > 0 {
			q.Filter = &views.TaxonomyFilter{TermID: termID, Taxonomy: taxonomy}
		}
		ranked, err := ranker.Rank(cmd.Context(), q)
		if err != nil {
			return err
		}

		popular := objects.NewBuilder(e.cfg.Site.URL, e.loc).Popular(ranked)
		return printPopular(cmd.OutOrStdout(), output, popular)
	},
}

var recordCmd = &cobra.Command{
	Use:   "record <post-id>",
	Short: "Record one view for a post today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}

		e, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		rec := views.NewRecorder(e.db.DB, clockwork.NewRealClock(), e.loc)
		if err := rec.RecordView(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded view for post %d\n", id)
		return nil
	},
}

func init() {
	topCmd.Flags().Int("days", 0, "Lookback window in days (default from config)")
	topCmd.Flags().Int("limit", 0, "Maximum number of posts (default from config)")
	topCmd.Flags().Int64("term-id", 0, "Only rank posts associated with this term")
	topCmd.Flags().String("taxonomy", views.DefaultTaxonomy, "Taxonomy of --term-id")
}

func printPopular(w io.Writer, format string, popular []objects.PopularPost) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(popular)
	}

	if len(popular) == 0 {
		fmt.Fprintln(w, "no views recorded in this window")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", header("RANK"), header("ID"), header("VIEWS"), header("TITLE"), header("LINK"))
	for i, p := range popular {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n", i+1, p.ID, p.Views, p.Title.Rendered, p.Link)
	}
	return tw.Flush()
}
