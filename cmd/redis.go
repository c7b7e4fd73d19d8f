package cmd

import (
	"fmt"

	"TrackFM/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试曲目缓存使用的 Redis 连接是否可用。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis配置: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		c, err := cache.Connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Fprintln(out, "REDIS_HOST is empty, track cache disabled")
			return nil
		}
		defer c.Close()
		fmt.Fprintln(out, "Redis连接成功！")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
