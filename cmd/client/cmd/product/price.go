package product

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
)

var (
	reference float64
	discount  float64
	peakHour  float64
	offer     float64
)

var PriceCmd = &cobra.Command{
	Use:   "price <id>",
	Short: "Изменить цены товара",
	Long: `Изменение цен в локальной копии. Товар помечается как измененный
и отправляется на сервер при следующей синхронизации.

Не указанные флаги сохраняют текущую цену.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		current, err := app.Products.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("ошибка получения товара: %w", err)
		}

		prices := current.Prices
		flags := cmd.Flags()
		if flags.Changed("reference") {
			prices.Reference = reference
		}
		if flags.Changed("discount") {
			prices.Discount = discount
		}
		if flags.Changed("peak") {
			prices.PeakHour = peakHour
		}
		if flags.Changed("offer") {
			prices.Offer = offer
		}

		updated, err := app.Products.UpdatePrices(cmd.Context(), id, prices)
		if err != nil {
			return fmt.Errorf("ошибка изменения цен: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(updated)
		}
		fmt.Printf("%s Цены товара #%d сохранены (версия %d)\n", types.Success("✓"), updated.ID, updated.Version)
		return nil
	},
}

func init() {
	PriceCmd.Flags().Float64Var(&reference, "reference", 0, "базовая цена")
	PriceCmd.Flags().Float64Var(&discount, "discount", 0, "цена со скидкой")
	PriceCmd.Flags().Float64Var(&peakHour, "peak", 0, "цена в час пик")
	PriceCmd.Flags().Float64Var(&offer, "offer", 0, "акционная цена")
}
