package stock

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/stock"
)

var (
	productID   int64
	batchNumber string
	expiryDate  string
	qty         int
)

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Принять партию",
	Long: `Приход партии товара. Если партия с таким номером уже есть,
она пополняется. Поступление ставится в очередь отправки на сервер.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		res, err := app.Stock.AddStock(cmd.Context(), stock.AddRequest{
			ProductID:   productID,
			BatchNumber: batchNumber,
			ExpiryDate:  expiryDate,
			Qty:         qty,
		})
		if err != nil {
			return fmt.Errorf("ошибка приема партии: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(res)
		}

		fmt.Printf("%s Партия %s: доступно %d из %d\n",
			types.Success("✓"), res.Batch.BatchNumber, res.Batch.Available, res.Batch.QtyStock)
		return nil
	},
}

func init() {
	AddCmd.Flags().Int64VarP(&productID, "product", "p", 0, "ID товара")
	AddCmd.Flags().StringVarP(&batchNumber, "batch", "b", "", "номер партии")
	AddCmd.Flags().StringVarP(&expiryDate, "expiry", "e", "", "срок годности YYYY-MM-DD")
	AddCmd.Flags().IntVarP(&qty, "qty", "q", 0, "количество")
	_ = AddCmd.MarkFlagRequired("product")
	_ = AddCmd.MarkFlagRequired("batch")
	_ = AddCmd.MarkFlagRequired("expiry")
	_ = AddCmd.MarkFlagRequired("qty")
}
