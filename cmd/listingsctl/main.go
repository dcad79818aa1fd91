package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"listings-cms/internal/cache"
	"listings-cms/internal/client"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
	cacheFile string
)

// cacheRetention bounds how old a cached listing may be when served offline.
const cacheRetention = 7 * 24 * time.Hour

var rootCmd = &cobra.Command{
	Use:   "listingsctl",
	Short: "Manage listings from the command line",
	Long: `listingsctl talks to a running listings-cms server.

Write commands need an admin session. Run 'listingsctl login' and pass the
printed token with --token or LISTINGS_TOKEN.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("LISTINGS_URL", "http://localhost:8080"), "Server base URL (or set LISTINGS_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("LISTINGS_TOKEN"), "Admin session token (or set LISTINGS_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&cacheFile, "cache-file", envOr("LISTINGS_CACHE", defaultCachePath()), "SQLite file holding cached listings; empty disables (or set LISTINGS_CACHE)")

	listCmd.Flags().String("category", "", "Filter extra-services by category (standard or vip)")

	loginCmd.Flags().String("username", envOr("ADMIN_USERNAME", "admin"), "Admin username")
	loginCmd.Flags().String("password", "", "Admin password (or set LISTINGS_PASSWORD)")

	videoSetCmd.Flags().String("phone", "", "WhatsApp number shown on the banner")
	videoSetCmd.Flags().String("file", "", "Video file to upload (.mp4, .webm or .ogg)")
	videoSetCmd.Flags().String("content-type", "", "Override the content type inferred from the file extension")
	videoCmd.AddCommand(videoGetCmd)
	videoCmd.AddCommand(videoSetCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(videoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithTimeout(timeout), client.WithToken(token))
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "listingsctl", "cache.db")
}

// openCache returns the listing cache for this run. A cache that cannot be
// opened is reported and replaced by an in-memory one.
func openCache(cmd *cobra.Command) (cache.Cache, func()) {
	if cacheFile == "" {
		return cache.NewMemoryCache(0), func() {}
	}
	store, err := cache.OpenSQLiteCache(cacheFile, cacheRetention)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: listing cache disabled: %v\n", err)
		return cache.NewMemoryCache(0), func() {}
	}
	return store, func() { _ = store.Close() }
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
