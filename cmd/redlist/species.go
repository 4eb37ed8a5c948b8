package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nainya/redlist/pkg/jsonx"
	"github.com/nainya/redlist/pkg/query"
)

type listFlags struct {
	q        string
	page     int
	pageSize int
	status   string
	hasImage string
	source   string
	sort     string
}

func newSpeciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Query species profiles",
	}
	cmd.AddCommand(newSpeciesListCmd())
	cmd.AddCommand(newSpeciesGetCmd())
	return cmd
}

func newSpeciesListCmd() *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search species and print one page as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			engine := query.NewEngine(newCorpus(cfg, log, nil))

			result, err := engine.Search(cmd.Context(), query.SearchOptions{
				Query:    f.q,
				Page:     f.page,
				PageSize: f.pageSize,
				Statuses: query.ParseList(f.status),
				HasImage: query.ParseTriState(f.hasImage),
				Sources:  query.ParseList(f.source),
				Sort:     query.ParseSortKey(f.sort),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), query.NewListResponse(result))
		},
	}

	cmd.Flags().StringVar(&f.q, "q", "", "Free-text query over names and descriptions")
	cmd.Flags().IntVar(&f.page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", query.DefaultPageSize, "Results per page (1-50)")
	cmd.Flags().StringVar(&f.status, "status", "", "Comma-separated IUCN codes, e.g. CR,EN")
	cmd.Flags().StringVar(&f.hasImage, "has-image", "", "Only species with (yes) or without (no) an image")
	cmd.Flags().StringVar(&f.source, "source", "", "Comma-separated source labels")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort key: name, newest or desc_len")

	return cmd
}

func newSpeciesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [slug]",
		Short: "Print one species profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			engine := query.NewEngine(newCorpus(cfg, log, nil))

			doc, err := engine.GetBySlug(cmd.Context(), args[0])
			if errors.Is(err, query.ErrNotFound) {
				return fmt.Errorf("species %q not found", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), query.ToDetail(doc))
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
