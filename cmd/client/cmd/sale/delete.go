package sale

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить продажу",
	Long: `Удаление продажи и ее позиций из локальной базы.
Неотправленный элемент очереди удаляется вместе с продажей.
Отправленную или отправляемую продажу удалить нельзя.
Списанное с партий количество не возвращается.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("неверный ID продажи: %q", args[0])
		}

		if err := app.Sales.DeleteSale(cmd.Context(), id); err != nil {
			return fmt.Errorf("ошибка удаления продажи: %w", err)
		}

		fmt.Printf("%s Продажа #%d удалена\n", types.Success("✓"), id)
		return nil
	},
}
