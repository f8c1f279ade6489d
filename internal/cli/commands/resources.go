package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/conduit-sdk/internal/cli/ui"
	"github.com/conduit-lang/conduit-sdk/pkg/resource"
)

// queryOptions holds the flags shared by find and count
type queryOptions struct {
	filters    []string
	sort       string
	includes   []string
	pageNumber int
	pageOffset int
	pageSize   int
}

func addFilterFlag(cmd *cobra.Command, q *queryOptions) {
	cmd.Flags().StringArrayVarP(&q.filters, "filter", "f", nil,
		"filter as op:name=value, e.g. equal:product.code=WIN95 (repeatable)")
}

// apply adds the query flags to c
func (q *queryOptions) apply(c *resource.Container) error {
	for _, raw := range q.filters {
		op, name, v, err := parseFilter(raw)
		if err != nil {
			return err
		}
		c.Filter(name, op, v)
	}
	if q.sort != "" {
		c.Sort(q.sort)
	}
	for _, name := range q.includes {
		c.Include(name)
	}

	paged := q.pageNumber > 0 || q.pageOffset > 0
	switch {
	case q.pageNumber > 0 && q.pageOffset > 0:
		return fmt.Errorf("--page-number and --page-offset cannot be combined")
	case paged && q.pageSize <= 0:
		return fmt.Errorf("--page-size is required when paging")
	case q.pageNumber > 0:
		c.PageNumber(q.pageNumber, q.pageSize)
	case q.pageOffset > 0 || q.pageSize > 0:
		c.PageOffset(q.pageOffset, q.pageSize)
	}
	return nil
}

// parseFilter splits op:name=value
func parseFilter(raw string) (resource.FilterOperator, string, string, error) {
	key, v, ok := strings.Cut(raw, "=")
	if !ok {
		return "", "", "", fmt.Errorf("invalid filter %q: expected op:name=value", raw)
	}
	opName, name, ok := strings.Cut(key, ":")
	if !ok || name == "" {
		return "", "", "", fmt.Errorf("invalid filter %q: expected op:name=value", raw)
	}
	op, err := resource.ParseFilterOperator(opName)
	if err != nil {
		return "", "", "", err
	}
	return op, name, v, nil
}

// NewGetCommand creates the get command
func NewGetCommand(opts *globalOptions) *cobra.Command {
	var (
		includes []string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "get <path> <id>",
		Short: "Fetch one resource",
		Long:  "Fetch the resource with the given id from a collection path and print it as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: runWithSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			c := s.container(args[0], "")
			for _, name := range includes {
				c.Include(name)
			}
			if err := c.Get(cmd.Context(), args[1]); err != nil {
				return err
			}
			return writeContainer(cmd.OutOrStdout(), c, format, opts.noColor)
		}),
	}
	cmd.Flags().StringSliceVar(&includes, "include", nil, "relationships to include")
	addOutputFlag(cmd, &format)
	return cmd
}

// NewFindCommand creates the find command
func NewFindCommand(opts *globalOptions) *cobra.Command {
	q := &queryOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "find <path>",
		Short: "List resources",
		Long:  "List the resources of a collection path matching the given filters and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: runWithSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			c := s.container(args[0], "")
			if err := q.apply(c); err != nil {
				return err
			}
			if err := c.Find(cmd.Context()); err != nil {
				return err
			}
			return writeContainer(cmd.OutOrStdout(), c, format, opts.noColor)
		}),
	}

	addFilterFlag(cmd, q)
	cmd.Flags().StringVar(&q.sort, "sort", "", "sort option, e.g. -createdAt")
	cmd.Flags().StringSliceVar(&q.includes, "include", nil, "relationships to include")
	cmd.Flags().IntVar(&q.pageNumber, "page-number", 0, "page number (with --page-size)")
	cmd.Flags().IntVar(&q.pageOffset, "page-offset", 0, "page offset")
	cmd.Flags().IntVar(&q.pageSize, "page-size", 0, "page size")
	addOutputFlag(cmd, &format)
	return cmd
}

// NewCountCommand creates the count command
func NewCountCommand(opts *globalOptions) *cobra.Command {
	q := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "count <path>",
		Short: "Count resources",
		Long:  "Count the resources of a collection path matching the given filters",
		Args:  cobra.ExactArgs(1),
		RunE: runWithSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			c := s.container(args[0], "")
			if err := q.apply(c); err != nil {
				return err
			}
			n, err := c.Count(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprint(out, "Count: ")
			color.New(color.FgWhite).Fprintln(out, n)
			return nil
		}),
	}

	addFilterFlag(cmd, q)
	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path> <id>",
		Short: "Delete one resource",
		Args:  cobra.ExactArgs(2),
		RunE: runWithSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			c := s.container(args[0], "")
			obj := c.Add()
			obj.SetID(args[1])
			if err := c.Delete(cmd.Context(), obj); err != nil {
				return err
			}

			ui.WriteSuccess(cmd.OutOrStdout(), "Deleted "+args[1], opts.noColor)
			return nil
		}),
	}
}
