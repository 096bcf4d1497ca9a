// Package cli реализует служебные команды reflexionctl.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reflexion-api/internal/app"
	"reflexion-api/internal/infra/config"
	logger "reflexion-api/internal/infra/log"
)

var verbose bool

// RootCmd является корневой командой.
var RootCmd = &cobra.Command{
	Use:   "reflexionctl",
	Short: "Обслуживание хранилища reflexion-api",
	Long:  "Служебные команды: импорт фраз, отчёты по пользователям, изображения. Настройки берутся из тех же переменных окружения, что и у api.",
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Писать служебный лог в stderr")
}

// env держит открытое хранилище и собранные поверх него сервисы.
type env struct {
	store    *app.Store
	services *app.Services
}

func (e *env) Close() { e.store.Close() }

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if verbose {
		log = logger.NewLogger("dev").Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	services, err := app.NewServices(cfg, store, nil, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &env{store: store, services: services}, nil
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
