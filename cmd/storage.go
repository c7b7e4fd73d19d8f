package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"TrackFM/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix string
	storageStats  bool
	storageDelete bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "存储桶管理",
	Long:  `查看和管理对象存储中的曲目文件，支持列出文件、查看统计信息、删除前缀下的所有文件。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StorageTimeout)
		defer cancel()

		backend, err := storage.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到存储: %w", err)
		}
		defer backend.Close()

		out := cmd.OutOrStdout()
		switch {
		case storageDelete:
			// 删除目录
			n, err := storage.DeletePrefix(ctx, backend, storagePrefix)
			if err != nil {
				return fmt.Errorf("删除目录失败: %w", err)
			}
			fmt.Fprintf(out, "deleted %d objects under %q\n", n, storagePrefix)
			return nil
		case storageStats:
			objects, err := backend.List(ctx, storagePrefix)
			if err != nil {
				return err
			}
			printStats(out, storage.Summarize(objects))
			return nil
		default:
			objects, err := backend.List(ctx, storagePrefix)
			if err != nil {
				return err
			}
			printObjects(out, objects)
			return nil
		}
	},
}

func printObjects(out io.Writer, objects []storage.ObjectInfo) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, obj := range objects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
	fmt.Fprintf(out, "%d objects\n", len(objects))
}

func printStats(out io.Writer, stats *storage.BucketStats) {
	fmt.Fprintf(out, "objects:       %d\n", stats.TotalObjects)
	fmt.Fprintf(out, "total size:    %s\n", storage.FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(out, "last modified: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}
	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "  %-24s %s\n", t, storage.FormatSize(stats.ByType[t]))
	}
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "tracks/", "按前缀过滤文件或指定要操作的目录")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "显示统计信息")
	storageCmd.Flags().BoolVarP(&storageDelete, "delete", "d", false, "删除指定前缀下的所有文件")

	storageCmd.Example = `  # 列出所有曲目文件
  trackfm storage

  # 显示统计信息
  trackfm storage -s

  # 删除前缀下的所有文件
  trackfm storage -d -p "tmp/"`
}
