package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"reflexion-api/internal/infra/config"
	"reflexion-api/internal/infra/events"
)

var tailLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Доменные события из Redis",
	}
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Забрать события из списка EVENTS_REDIS_KEY и вывести по одному JSON в строке",
		Args:  cobra.NoArgs,
		Run:   runEventsTail,
	}
	tail.Flags().IntVarP(&tailLimit, "limit", "n", 0, "Остановиться после n событий (0: до прерывания)")
	cmd.AddCommand(tail)

	RootCmd.AddCommand(cmd)
}

func runEventsTail(cmd *cobra.Command, _ []string) {
	cfg, err := config.Read()
	if err != nil {
		exitErr("config", err)
	}
	if cfg.Cache.RedisAddr == "" {
		exitErr("config", errors.New("REDIS_ADDR is not set"))
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	defer client.Close()
	queue := events.NewRedisPublisher(client, cfg.Events.RedisKey)

	for n := 0; tailLimit == 0 || n < tailLimit; n++ {
		event, err := queue.Pop(cmd.Context())
		if err != nil {
			if cmd.Context().Err() != nil {
				return
			}
			exitErr("pop", err)
		}
		b, _ := json.Marshal(event)
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
	}
}
