package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pixivsync/pkg/logger"
	"pixivsync/pkg/syncer"
)

var countVerbose bool

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Report database and download directory statistics",
	Long: `Classify every known illustration and image by its excluded flag and
on-disk presence. The not_exist and not_deleted buckets surface drift
between the database and the download directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db := openStore(cfg)

		s := syncer.New(cfg, db, nil, logger.GetLogger())
		counts, err := s.Count()
		if err != nil {
			return err
		}

		for _, key := range []string{"illust", "deleted_illust", "images", "deleted_images", "not_exist_images", "not_deleted_images"} {
			fmt.Printf("%-20s %d\n", key, counts.Summary()[key])
		}

		if countVerbose {
			if len(counts.NotExistImages) > 0 {
				fmt.Println("\nmissing from disk:")
				for _, path := range counts.NotExistImages {
					fmt.Println("  " + path)
				}
			}
			if len(counts.NotDeletedImages) > 0 {
				fmt.Println("\nstill on disk despite removal:")
				for _, path := range counts.NotDeletedImages {
					fmt.Println("  " + path)
				}
			}
		}
		return nil
	},
}

func init() {
	countCmd.Flags().BoolVarP(&countVerbose, "verbose", "v", false, "list the mismatched image paths")

	rootCmd.AddCommand(countCmd)
}
