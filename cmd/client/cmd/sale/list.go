package sale

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/sale"
)

var (
	unsyncedOnly bool
	limit        int
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список продаж",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		sales, err := app.Sales.List(cmd.Context(), sale.ListFilter{UnsyncedOnly: unsyncedOnly, Limit: limit})
		if err != nil {
			return fmt.Errorf("ошибка получения продаж: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(sales)
		}

		if len(sales) == 0 {
			fmt.Println("Продажи не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tДАТА\tСУММА\tСКИДКА\tСИНХР.\t")
		for _, s := range sales {
			synced := types.Success("да")
			if !s.IsSynced {
				synced = types.Warning("нет")
				if s.SyncError != nil {
					synced = types.Failure(*s.SyncError)
				}
			}
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%s\n",
				s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Total, s.DiscountTotal, synced)
		}
		return w.Flush()
	},
}

func init() {
	ListCmd.Flags().BoolVar(&unsyncedOnly, "unsynced", false, "только неотправленные")
	ListCmd.Flags().IntVar(&limit, "limit", 50, "максимальное количество")
}
