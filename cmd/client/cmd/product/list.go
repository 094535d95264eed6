package product

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/product"
)

var (
	search      string
	lowStock    bool
	showDeleted bool
	limit       int
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список товаров",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		products, err := app.Products.List(cmd.Context(), product.ListFilter{
			Search:         search,
			LowStockOnly:   lowStock,
			IncludeDeleted: showDeleted,
			Limit:          limit,
		})
		if err != nil {
			return fmt.Errorf("ошибка получения списка товаров: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(products)
		}

		if len(products) == 0 {
			fmt.Println("Товары не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tЦЕНА\tОСТАТОК\tВЕРСИЯ\t")
		for _, p := range products {
			mark := ""
			switch {
			case p.IsDeleted():
				mark = types.Failure("удален")
			case p.IsDirty:
				mark = types.Warning("не отправлен")
			case p.LowStock():
				mark = types.Warning("мало")
			}
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%d\t%s\n",
				p.ID, p.Name, p.Prices.Reference, p.Stock, p.Version, mark)
		}
		return w.Flush()
	},
}

func init() {
	ListCmd.Flags().StringVarP(&search, "search", "s", "", "поиск по названию")
	ListCmd.Flags().BoolVar(&lowStock, "low-stock", false, "только товары с низким остатком")
	ListCmd.Flags().BoolVar(&showDeleted, "deleted", false, "включая удаленные")
	ListCmd.Flags().IntVar(&limit, "limit", 100, "максимальное количество")
}
