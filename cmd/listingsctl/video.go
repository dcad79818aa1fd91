package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"listings-cms/internal/client"

	"github.com/spf13/cobra"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Show or change the promo video banner",
}

var videoGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current banner settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		settings, err := newClient().Video().Get(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, settings)
	},
}

var videoSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Upload a video and/or change the phone number (admin)",
	Example: `  listingsctl video set --phone 919999999999
  listingsctl video set --file promo.webm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		phone, _ := cmd.Flags().GetString("phone")
		path, _ := cmd.Flags().GetString("file")
		contentType, _ := cmd.Flags().GetString("content-type")
		if phone == "" && path == "" {
			return fmt.Errorf("one of --phone or --file is required")
		}

		update := client.VideoUpdate{PhoneNumber: phone}
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			if contentType == "" {
				contentType = videoContentTypes[strings.ToLower(filepath.Ext(path))]
			}
			if contentType == "" {
				return fmt.Errorf("cannot infer content type of %s; pass --content-type", path)
			}
			update.File = f
			update.FileName = filepath.Base(path)
			update.ContentType = contentType
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		settings, err := newClient().Video().Update(ctx, update)
		if err != nil {
			return err
		}
		return printJSON(cmd, settings)
	},
}
