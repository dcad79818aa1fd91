package main

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"listings-cms/internal/cache"
	"listings-cms/internal/client"
	"listings-cms/models"

	"github.com/spf13/cobra"
)

// resourceOps erases the listing type so commands can dispatch by name.
// list and delete go through a FallbackLister over the local cache.
type resourceOps struct {
	list   func(ctx context.Context, query url.Values) (docs any, stale bool, err error)
	get    func(ctx context.Context, id string) (any, error)
	delete func(ctx context.Context, id string) error
}

func opsFor[T models.Identifiable](r *client.Resource[T], store cache.Cache) resourceOps {
	lister := client.NewFallbackLister(r, store)
	return resourceOps{
		list: func(ctx context.Context, q url.Values) (any, bool, error) {
			return lister.List(ctx, q)
		},
		get:    func(ctx context.Context, id string) (any, error) { return r.GetByID(ctx, id) },
		delete: lister.Delete,
	}
}

func resources(c *client.Client, store cache.Cache) map[string]resourceOps {
	return map[string]resourceOps{
		"profiles":                opsFor(c.Profiles(), store),
		"high-profile-call-girls": opsFor(c.HighProfiles(), store),
		"services":                opsFor(c.Services(), store),
		"extra-services":          opsFor(c.ExtraServices(), store),
		"final-call-girls":        opsFor(c.FinalCallGirls(), store),
	}
}

func lookup(name string, store cache.Cache) (resourceOps, error) {
	all := resources(newClient(), store)
	ops, ok := all[name]
	if !ok {
		names := make([]string, 0, len(all))
		for n := range all {
			names = append(names, n)
		}
		sort.Strings(names)
		return resourceOps{}, fmt.Errorf("unknown resource %q (one of: %s)", name, strings.Join(names, ", "))
	}
	return ops, nil
}

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List a resource, newest first",
	Example: `  listingsctl list profiles
  listingsctl list extra-services --category vip`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore := openCache(cmd)
		defer closeStore()

		ops, err := lookup(args[0], store)
		if err != nil {
			return err
		}

		query := url.Values{}
		if category, _ := cmd.Flags().GetString("category"); category != "" {
			query.Set("category", category)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		docs, stale, err := ops.list(ctx, query)
		if err != nil {
			return err
		}
		if stale {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: server unreachable, showing the last cached copy")
		}
		return printJSON(cmd, docs)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <resource> <id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops, err := lookup(args[0], cache.NewMemoryCache(0))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		doc, err := ops.get(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <resource> <id>",
	Short: "Delete one document (admin)",
	Long: `Delete one document. The document is also removed from cached listings,
even when the server rejects or cannot be reached for the delete.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore := openCache(cmd)
		defer closeStore()

		ops, err := lookup(args[0], store)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := ops.delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", args[0], args[1])
		return nil
	},
}
