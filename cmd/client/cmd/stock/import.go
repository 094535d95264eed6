package stock

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/app/client/importer"
)

var ImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Импорт поступлений из Excel",
	Long: `Импорт партий из первого листа таблицы. Обязательные колонки:
ID товара, номер партии, срок годности, количество (заголовки на русском
или английском). Ошибочные строки пропускаются и выводятся в отчете.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("ошибка открытия файла: %w", err)
		}
		defer f.Close()

		rows, parseErrs, err := importer.ParseStockSheet(f)
		if err != nil {
			return fmt.Errorf("ошибка чтения таблицы: %w", err)
		}

		res, err := app.Stock.Import(cmd.Context(), rows)
		if err != nil {
			return fmt.Errorf("ошибка импорта: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(struct {
				Added   int `json:"added"`
				Invalid int `json:"invalid"`
				Failed  int `json:"failed"`
			}{res.Added, len(parseErrs), len(res.Failed)})
		}

		fmt.Printf("%s Принято партий: %d\n", types.Success("✓"), res.Added)
		for _, e := range parseErrs {
			fmt.Printf("  %s строка %d: %v\n", types.Warning("⚠"), e.Row, e.Err)
		}
		// номера строк импорта считаются среди разобранных строк, не строк листа
		for _, e := range res.Failed {
			fmt.Printf("  %s запись %d: %v\n", types.Failure("✗"), e.Row, e.Err)
		}
		return nil
	},
}
