package queue

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/queue"
)

var (
	listStatus     string
	listLimit      int
	retryExhausted bool
)

// QueueCmd - родительская команда для очереди синхронизации
var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Очередь синхронизации",
	Long:  `Просмотр и обслуживание очереди исходящих изменений.`,
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние очереди",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		stats, err := app.Queue.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения статистики очереди: %w", err)
		}

		var items []queue.Item
		if listStatus != "" {
			items, err = app.Queue.List(cmd.Context(), queue.Status(listStatus), listLimit)
			if err != nil {
				return fmt.Errorf("ошибка получения элементов очереди: %w", err)
			}
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(struct {
				Stats queue.Stats  `json:"stats"`
				Items []queue.Item `json:"items,omitempty"`
			}{stats, items})
		}

		types.Title("Очередь синхронизации")
		fmt.Printf("  Ожидают:     %d\n", stats.Pending)
		fmt.Printf("  В работе:    %d\n", stats.Processing)
		fmt.Printf("  Выполнены:   %d\n", stats.Completed)
		fmt.Printf("  С ошибкой:   %s\n", colorCount(stats.Failed))
		fmt.Printf("  Исчерпаны:   %s\n", colorCount(stats.Exhausted))

		if len(items) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tСУЩНОСТЬ\tДЕЙСТВИЕ\tПОПЫТКИ\tОШИБКА\t")
		for _, it := range items {
			msg := ""
			if it.Error != nil {
				msg = *it.Error
			}
			fmt.Fprintf(w, "%d\t%s/%s\t%s\t%d\t%s\n",
				it.ID, it.EntityType, it.EntityID, it.Action, it.RetryCount, msg)
		}
		return w.Flush()
	},
}

var RetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Вернуть ошибочные элементы в очередь",
	Long: `Элементы с ошибкой, не исчерпавшие лимит попыток, возвращаются
в состояние ожидания и будут отправлены при следующей синхронизации.

Исчерпавшие лимит элементы блокируют повторную постановку своей сущности
и возвращаются только с флагом --exhausted (счетчик попыток обнуляется).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		n, err := app.Queue.RetryFailed(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка повтора: %w", err)
		}
		if retryExhausted {
			m, err := app.Queue.ResetExhausted(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка повтора исчерпанных: %w", err)
			}
			n += m
		}
		fmt.Printf("%s Возвращено в очередь: %d\n", types.Success("✓"), n)
		return nil
	},
}

var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Удалить выполненные элементы",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		n, err := app.Queue.ClearCompleted(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка очистки: %w", err)
		}
		fmt.Printf("%s Удалено выполненных: %d\n", types.Success("✓"), n)
		return nil
	},
}

func colorCount(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return types.Warning(n)
}

func init() {
	StatusCmd.Flags().StringVar(&listStatus, "list", "", "показать элементы со статусом (pending, processing, completed, failed)")
	StatusCmd.Flags().IntVar(&listLimit, "limit", 20, "максимальное количество элементов")
	RetryCmd.Flags().BoolVar(&retryExhausted, "exhausted", false, "вернуть и элементы, исчерпавшие лимит попыток")
}
