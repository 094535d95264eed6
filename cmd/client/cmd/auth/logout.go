package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockkeeper/cmd/client/cmd/types"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из системы",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if !app.IsAuthenticated() {
			fmt.Println("Вход не выполнен.")
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if err := app.Logout(ctx); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}

		fmt.Printf("%s Сессия завершена\n", types.Success("✓"))
		return nil
	},
}
