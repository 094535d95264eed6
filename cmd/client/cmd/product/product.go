package product

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ProductCmd - родительская команда для работы с каталогом
var ProductCmd = &cobra.Command{
	Use:   "product",
	Short: "Каталог товаров",
	Long:  `Просмотр локальной копии каталога и редактирование цен.`,
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("неверный ID товара: %q", s)
	}
	return id, nil
}
