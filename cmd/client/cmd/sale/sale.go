package sale

import (
	"github.com/spf13/cobra"
)

// SaleCmd - родительская команда для продаж
var SaleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Продажи",
	Long:  `Оформление, просмотр и удаление продаж в локальной базе.`,
}
