package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/litetable/litetable-access/internal/access"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/spf13/cobra"
)

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:                "ltaccess",
		Short:              "Read, count and delete rows of a LiteTable Access store",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  s.open,
		PersistentPostRunE: s.close,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "config file (default ~/.litetable-access/litetable-access.yaml)")
	flags.StringVar(&s.target, "target", "", "store daemon address (default store.address:store.port)")
	flags.StringArrayVar(&s.columns, "column", nil, "mapped column as name=family:qualifier[:kind], repeatable")
	flags.StringVar(&s.version, "version", "", "name of the version column")
	flags.StringVar(&s.countColumn, "count-column", "", "family:qualifier counted by count (default from config)")
	flags.BoolVar(&s.intKeys, "int-keys", false, "row keys are big-endian int64")
	flags.BoolVar(&s.debug, "debug", false, "debug logging")

	root.AddCommand(
		newScanCmd(s),
		newGetCmd(s),
		newCountCmd(s),
		newDeleteRangeCmd(s),
		newQueriesCmd(s),
	)
	return root
}

// filterFlags selects the filter of a command: raw text, a registered query, or none.
type filterFlags struct {
	text   string
	id     string
	params []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "query", "", "filter expression")
	cmd.Flags().StringVar(&f.id, "query-id", "", "id of a registered query")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "query parameter as name=value, repeatable")
	cmd.MarkFlagsMutuallyExclusive("query", "query-id")
}

func (f *filterFlags) set() bool {
	return f.text != "" || f.id != ""
}

type rangeFlags struct {
	start string
	end   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.start, "start", "", "first row key, inclusive (default table start)")
	cmd.Flags().StringVar(&r.end, "end", "", "last row key, exclusive (default table end)")
}

func (r *rangeFlags) keys(intKeys bool) (litetable.RowKey, litetable.RowKey, error) {
	start, err := parseKey(r.start, intKeys)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseKey(r.end, intKeys)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func newScanCmd(s *session) *cobra.Command {
	var (
		rng    rangeFlags
		filter filterFlags
		offset int64
		limit  int64
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print the objects of a key range, one JSON document per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := s.table()
			if err != nil {
				return err
			}
			start, end, err := rng.keys(s.intKeys)
			if err != nil {
				return err
			}
			params, err := parseParams(filter.params)
			if err != nil {
				return err
			}
			w := access.All
			if offset != 0 || limit != 0 {
				length := limit
				if limit == 0 {
					length = math.MaxInt64
				}
				w = access.Page(offset, length)
			}

			var records []record
			switch {
			case filter.id != "":
				records, err = t.FindListByQuery(cmd.Context(), start, end, w, filter.id, params)
			case filter.text != "":
				records, err = t.FindListByRawQuery(cmd.Context(), start, end, w, filter.text,
					params)
			default:
				records, err = t.FindList(cmd.Context(), start, end, w)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records...)
		},
	}
	rng.register(cmd)
	filter.register(cmd)
	cmd.Flags().Int64Var(&offset, "offset", 0, "matching rows to skip")
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum rows to print (default all)")
	return cmd
}

// rawCell is a cell printed by get when no columns are mapped.
type rawCell struct {
	Family    string `json:"family"`
	Qualifier string `json:"qualifier"`
	Value     string `json:"value"`
}

type rawRow struct {
	Key   any       `json:"key"`
	Cells []rawCell `json:"cells"`
}

func newGetCmd(s *session) *cobra.Command {
	var filter filterFlags
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one row; decoded with --column, raw cells otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0], s.intKeys)
			if err != nil {
				return err
			}
			params, err := parseParams(filter.params)
			if err != nil {
				return err
			}

			if s.records == nil {
				if filter.set() {
					return errors.New("a filtered get needs at least one --column")
				}
				row, err := s.client.GetRow(cmd.Context(), key, nil)
				if err != nil {
					return err
				}
				if row == nil {
					return fmt.Errorf("row %s not found", key)
				}
				out := rawRow{Key: formatKey(row.Key, s.intKeys)}
				for _, c := range row.Cells() {
					out.Cells = append(out.Cells, rawCell{
						Family:    c.Family,
						Qualifier: c.Qualifier,
						Value:     string(c.Value),
					})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			var (
				r     record
				found bool
			)
			switch {
			case filter.id != "":
				r, found, err = s.records.FindByQuery(cmd.Context(), key, filter.id, params)
			case filter.text != "":
				r, found, err = s.records.FindByRawQuery(cmd.Context(), key, filter.text, params)
			default:
				r, found, err = s.records.Find(cmd.Context(), key)
			}
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("row %s not found", key)
			}
			return writeJSON(cmd.OutOrStdout(), r)
		},
	}
	filter.register(cmd)
	return cmd
}

func newCountCmd(s *session) *cobra.Command {
	var (
		rng    rangeFlags
		filter filterFlags
	)
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the rows of a key range that carry the count column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := rng.keys(s.intKeys)
			if err != nil {
				return err
			}
			params, err := parseParams(filter.params)
			if err != nil {
				return err
			}

			var n int64
			if !filter.set() {
				n, err = s.client.Count(cmd.Context(), start, end)
			} else {
				t, terr := s.table()
				if terr != nil {
					return terr
				}
				if filter.id != "" {
					n, err = t.CountByQuery(cmd.Context(), start, end, filter.id, params)
				} else {
					n, err = t.CountByRawQuery(cmd.Context(), start, end, filter.text, params)
				}
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	rng.register(cmd)
	filter.register(cmd)
	return cmd
}

func newDeleteRangeCmd(s *session) *cobra.Command {
	var (
		rng rangeFlags
		all bool
	)
	cmd := &cobra.Command{
		Use:   "delete-range",
		Short: "Delete every row of a key range, restricted to the mapped families if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rng.start == "" && rng.end == "" && !all {
				return errors.New("refusing to delete the whole table without --all")
			}
			start, end, err := rng.keys(s.intKeys)
			if err != nil {
				return err
			}

			if s.records != nil {
				err = s.records.DeleteList(cmd.Context(), start, end)
			} else {
				err = s.client.DeleteObjectList(cmd.Context(), start, end, nil)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted [%s, %s)\n", start, end)
			return err
		},
	}
	rng.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "allow deleting the whole table")
	return cmd
}

func newQueriesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "queries",
		Short: "List the ids of the registered queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, id := range s.queries.IDs() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func writeJSON[T any](w io.Writer, values ...T) error {
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
