package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pixivsync/pkg/logger"
	"pixivsync/pkg/syncer"
)

var (
	removeExcludedSimulate bool
	removeExcludedShowInfo bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <illust-id>...",
	Short: "Remove illustrations from disk and mark them excluded",
	Long: `Remove the downloaded files of the given illustrations and mark their
records excluded. The records are kept so the illustrations are not
re-discovered on the next sync.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db := openStore(cfg)
		defer saveStore(cfg, db)

		s := syncer.New(cfg, db, nil, logger.GetLogger())
		s.Remove(args)
		return nil
	},
}

var removeExcludedCmd = &cobra.Command{
	Use:   "remove-excluded",
	Short: "Remove every illustration the current filter rules exclude",
	Long: `Re-evaluate the include/exclude rules against every live record and
remove the illustrations that are now excluded. Use --simulate to list
the candidates without touching anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db := openStore(cfg)
		if !removeExcludedSimulate {
			defer saveStore(cfg, db)
		}

		s := syncer.New(cfg, db, nil, logger.GetLogger())
		candidates, err := s.RemoveExcluded(removeExcludedSimulate)
		if err != nil {
			return err
		}

		if removeExcludedShowInfo {
			for _, illustID := range candidates {
				il, ok := db.GetIllust(illustID)
				if !ok {
					continue
				}
				fmt.Printf("%s\t%s\t%s\n", il.ID, il.AuthorName, il.Title)
			}
		}
		return nil
	},
}

func init() {
	removeExcludedCmd.Flags().BoolVarP(&removeExcludedSimulate, "simulate", "S", false, "list candidates without removing anything")
	removeExcludedCmd.Flags().BoolVarP(&removeExcludedShowInfo, "show-info", "I", false, "print id, author and title of each candidate")

	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(removeExcludedCmd)
}
