// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/secdigest/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and maintain the record store",
}

// --- status subcommand ---

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many records sit at each pipeline stage",
	RunE:  runStoreStatus,
}

func runStoreStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.CountByStage()
	if err != nil {
		return err
	}
	for _, stage := range []string{"new", "downloaded", "summarized", "classified", "project-matched"} {
		fmt.Printf("%-16s %d\n", stage, counts[stage])
	}
	return nil
}

// --- list subcommand ---

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records, newest first",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.All()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("store is empty")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-10s  %-8s  %-5s  %s\n", "ID", "Published", "Tag", "Score", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, r := range records {
		score := "-"
		if r.InterestScore != nil {
			score = fmt.Sprintf("%d", *r.InterestScore)
		}
		title := r.Title
		if len(title) > 45 {
			title = title[:42] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-16s  %-10s  %-8s  %-5s  %s\n",
			r.ID, r.Published.Format("2006-01-02"), r.Tag, score, title)
	}
	fmt.Fprintf(os.Stdout, "\n%d records\n", len(records))
	return nil
}

// --- reset subcommand ---

var storeResetCmd = &cobra.Command{
	Use:   "reset <id> [field...]",
	Short: "Clear derived fields on a record so the pipeline redoes them",
	Long: `Reset removes derived fields from a record, reverting its stage flags so
the next run recomputes them. With no field arguments all summary-derived
fields are cleared. Valid fields: points, one_liner, emoji, tag,
affiliations, relevant, projects, interest_score, pdf_path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStoreReset,
}

func runStoreReset(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	fields := args[1:]
	if len(fields) == 0 {
		fields = store.SummaryFields
	}
	if err := st.ResetFields(args[0], fields...); err != nil {
		return err
	}
	fmt.Printf("reset %s on %s\n", strings.Join(fields, ", "), args[0])
	return st.Flush()
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	return store.Open(path)
}

func init() {
	storeCmd.PersistentFlags().String("db", "papers.db", "path to the SQLite record store")

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeResetCmd)

	rootCmd.AddCommand(storeCmd)
}
