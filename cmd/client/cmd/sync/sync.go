package sync

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/app/client"
	"stockkeeper/internal/app/client/scheduler"
)

var (
	syncStatus bool
	pullOnly   bool
	fullPull   bool
	watch      bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Синхронизация локальной базы с сервером.

Без флагов выполняет один цикл: повтор ошибочных элементов, постановка
измененных товаров в очередь, отправка очереди, выгрузка каталога.
С --watch работает в фоне до Ctrl+C и принимает push-события остатков.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		switch {
		case syncStatus:
			return showSyncStatus(cmd, app)
		case watch:
			return runWatch(cmd.Context(), app)
		case pullOnly:
			res, err := app.PullOnly(cmd.Context(), fullPull)
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		default:
			res, err := app.SyncNow(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		}
	},
}

func runWatch(ctx context.Context, app *client.App) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	fmt.Println("Фоновая синхронизация запущена. Ctrl+C для остановки.")
	return app.Watch(ctx)
}

func printResult(cmd *cobra.Command, res scheduler.Result) error {
	if types.JSONOutput(cmd) {
		return types.PrintJSON(res)
	}

	if res.Status == scheduler.StatusAlreadyInProgress {
		fmt.Println(types.Warning("Синхронизация уже выполняется"))
		return nil
	}

	if res.OK() {
		fmt.Printf("%s Синхронизация завершена\n", types.Success("✓"))
	} else {
		fmt.Printf("%s Синхронизация завершена с ошибками\n", types.Warning("⚠"))
	}
	fmt.Printf("Время выполнения: %v\n", res.Duration.Round(time.Millisecond))
	fmt.Printf("Возвращено в очередь: %d\n", res.Retried)
	fmt.Printf("Поставлено в очередь: %d\n", res.Enqueued)
	fmt.Printf("Отправлено: %d, ошибок отправки: %d\n", res.Pushed, res.Failed)
	fmt.Printf("Выгружено: %d, устаревших: %d, оставлено локальных: %d, невалидных: %d\n",
		res.Pulled, res.Stale, res.KeptLocal, res.Invalid)

	for i, e := range res.Errors {
		if i == 3 {
			fmt.Printf("  ... и еще %d ошибок\n", len(res.Errors)-3)
			break
		}
		fmt.Printf("  • %s: %s\n", e.Op, e.Error)
	}
	return nil
}

func showSyncStatus(cmd *cobra.Command, app *client.App) error {
	status, err := app.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("ошибка получения статуса: %w", err)
	}

	if types.JSONOutput(cmd) {
		return types.PrintJSON(status)
	}

	types.Title("Статус синхронизации")

	auth := types.Success("выполнена")
	if !status.Authenticated {
		auth = types.Failure("требуется вход")
	}
	fmt.Printf("Аутентификация:     %s\n", auth)

	lastPull := status.LastPull
	if lastPull == "" {
		lastPull = "не выполнялась"
	}
	fmt.Printf("Последняя выгрузка: %s\n", lastPull)

	q := status.Queue
	fmt.Printf("Очередь:            ожидают %d, в работе %d, ошибок %d (исчерпано %d)\n",
		q.Pending, q.Processing, q.Failed, q.Exhausted)

	cfg := app.Config()
	fmt.Printf("Интервал:           %v\n", cfg.SyncInterval)
	fmt.Printf("Размер пакета:      %d\n", cfg.BatchSize)
	fmt.Printf("Стратегия:          %s\n", cfg.ConflictStrategy)

	fmt.Print("Соединение:         ")
	if err := app.CheckConnection(cmd.Context()); err != nil {
		fmt.Println(types.Failure(err.Error()))
	} else {
		fmt.Println(types.Success("OK"))
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&pullOnly, "pull-only", false, "только выгрузить каталог")
	SyncCmd.Flags().BoolVar(&fullPull, "full", false, "с --pull-only: полная выгрузка, без отметки времени")
	SyncCmd.Flags().BoolVar(&watch, "watch", false, "фоновая синхронизация и push-события до Ctrl+C")
}
