package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/auth"
	"stockkeeper/cmd/client/cmd/product"
	"stockkeeper/cmd/client/cmd/queue"
	"stockkeeper/cmd/client/cmd/sale"
	"stockkeeper/cmd/client/cmd/stock"
	"stockkeeper/cmd/client/cmd/sync"
	"stockkeeper/cmd/client/cmd/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Инициализировать клиент StockKeeper",
	Long: `Команда init выполняет первоначальную настройку клиента:
	1. Создает локальную базу и применяет миграции
	2. Проверяет соединение с сервером`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		types.Title("Инициализация StockKeeper")

		// база уже открыта и мигрирована в setupApp
		fmt.Printf("%s Локальная база: %s\n", types.Success("✓"), cfg.DataPath)

		fmt.Println("Проверка соединения с сервером...")
		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("%s не удалось подключиться к серверу: %v\n", types.Warning("⚠"), err)
			fmt.Println("Продажи и поступления будут копиться в очереди до появления связи.")
		} else {
			fmt.Printf("%s Соединение с сервером установлено\n", types.Success("✓"))
		}

		fmt.Println()
		fmt.Println("Что дальше:")
		fmt.Println("1. Войдите в систему: stockkeeper auth login")
		fmt.Println("2. Выгрузите каталог: stockkeeper sync --pull-only")
		fmt.Println("3. Запустите фоновую синхронизацию: stockkeeper sync --watch")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)

	rootCmd.AddCommand(product.ProductCmd)
	product.ProductCmd.AddCommand(product.ListCmd)
	product.ProductCmd.AddCommand(product.ShowCmd)
	product.ProductCmd.AddCommand(product.PriceCmd)

	rootCmd.AddCommand(sale.SaleCmd)
	sale.SaleCmd.AddCommand(sale.CreateCmd)
	sale.SaleCmd.AddCommand(sale.DeleteCmd)
	sale.SaleCmd.AddCommand(sale.ListCmd)

	rootCmd.AddCommand(stock.StockCmd)
	stock.StockCmd.AddCommand(stock.AddCmd)
	stock.StockCmd.AddCommand(stock.ImportCmd)

	rootCmd.AddCommand(queue.QueueCmd)
	queue.QueueCmd.AddCommand(queue.StatusCmd)
	queue.QueueCmd.AddCommand(queue.RetryCmd)
	queue.QueueCmd.AddCommand(queue.ClearCmd)

	rootCmd.AddCommand(sync.SyncCmd)
}
