package product

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/batch"
)

var ShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Карточка товара с партиями",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		p, err := app.Products.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("ошибка получения товара: %w", err)
		}
		batches, err := app.Stock.Batches(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("ошибка получения партий: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(struct {
				Product any `json:"product"`
				Batches any `json:"batches"`
			}{p, batches})
		}

		types.Title(fmt.Sprintf("#%d %s", p.ID, p.Name))
		if p.GenericName != "" {
			fmt.Printf("МНН:          %s\n", p.GenericName)
		}
		fmt.Printf("Статус:       %s\n", p.Status)
		fmt.Printf("Цена:         %.2f\n", p.Prices.Reference)
		fmt.Printf("Со скидкой:   %.2f\n", p.Prices.Discount)
		fmt.Printf("Час пик:      %.2f\n", p.Prices.PeakHour)
		fmt.Printf("Акция:        %.2f\n", p.Prices.Offer)
		fmt.Printf("Остаток:      %d (порог %d)\n", p.Stock, p.StockAlert)
		fmt.Printf("Версия:       %d\n", p.Version)
		fmt.Printf("Изменен:      %s\n", p.LastModifiedAt.Local().Format("2006-01-02 15:04:05"))
		if p.IsDirty {
			fmt.Println(types.Warning("Есть неотправленные изменения цен"))
		}

		if len(batches) == 0 {
			return nil
		}
		fmt.Println()
		fmt.Println("Партии:")
		for _, b := range batches {
			fmt.Printf("  %-12s до %s  %d/%d  %s\n",
				b.BatchNumber, b.ExpiryDate.Format(batch.DateLayout), b.Available, b.QtyStock, b.Status)
		}
		return nil
	},
}
