package main

import (
	"github.com/spf13/cobra"

	"pixivsync/pkg/logger"
	"pixivsync/pkg/syncer"
)

var (
	syncListOnly      bool
	syncFetchOnly     bool
	syncMaxBookmarkID string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Discover new illustrations and download pending images",
	Long: `Discover new illustrations from the configured authors and bookmarks,
then download every image that has not been fetched yet.

Discovery only appends: records already in the database are never
re-fetched or overwritten. Downloads are resumable; a failed image is
retried on the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db := openStore(cfg)
		defer saveStore(cfg, db)

		client := newClient(cfg, db)

		s := syncer.New(cfg, db, client, logger.GetLogger())
		return s.Sync(syncer.SyncOptions{
			ListOnly:      syncListOnly,
			FetchOnly:     syncFetchOnly,
			MaxBookmarkID: syncMaxBookmarkID,
		})
	},
}

func init() {
	syncCmd.Flags().BoolVarP(&syncListOnly, "list-only", "l", false, "only update the database, skip downloads")
	syncCmd.Flags().BoolVarP(&syncFetchOnly, "fetch-only", "f", false, "only download pending images, skip discovery")
	syncCmd.Flags().StringVarP(&syncMaxBookmarkID, "max-bookmark-id", "m", "", "start bookmark pagination from this cursor")

	rootCmd.AddCommand(syncCmd)
}
