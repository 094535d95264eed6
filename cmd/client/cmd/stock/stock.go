package stock

import (
	"github.com/spf13/cobra"
)

// StockCmd - родительская команда для поступлений
var StockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Поступления товара",
	Long:  `Приход партий вручную или из таблицы Excel.`,
}
