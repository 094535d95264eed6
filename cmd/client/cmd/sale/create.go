package sale

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/sale"
)

var (
	items       []string
	customerRef string
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Оформить продажу",
	Long: `Оформление продажи. Количество списывается с партий по сроку годности
(сначала ближайший), продажа ставится в очередь отправки на сервер.

Позиция задается как product_id:qty[:цена[:цена_со_скидкой]], например:
  stockkeeper sale create --item 12:2 --item 40:1:99.90:89.90`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("укажите хотя бы одну позицию через --item")
		}

		lines := make([]sale.LineItem, 0, len(items))
		for _, spec := range items {
			line, err := parseLine(cmd.Context(), app.Products, spec)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		s, err := app.Sales.CreateSale(cmd.Context(), customerRef, lines, totals(lines))
		if err != nil {
			return fmt.Errorf("ошибка оформления продажи: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(s)
		}

		fmt.Printf("%s Продажа #%d оформлена (%s)\n", types.Success("✓"), s.ID, s.TransactionID)
		fmt.Printf("Сумма: %.2f, скидка: %.2f\n", s.Total, s.DiscountTotal)
		for _, it := range s.Items {
			batchNumber := it.BatchNumber
			if it.BatchID == nil {
				batchNumber = types.Warning("без партии")
			}
			fmt.Printf("  товар %d x%d  %s\n", it.ProductID, it.Qty, batchNumber)
		}
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringArrayVarP(&items, "item", "i", nil, "позиция product_id:qty[:цена[:цена_со_скидкой]]")
	CreateCmd.Flags().StringVar(&customerRef, "customer", "", "ссылка на покупателя")
}
