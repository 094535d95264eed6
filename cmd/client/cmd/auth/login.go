package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stockkeeper/cmd/client/cmd/types"
)

var loginName string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему StockKeeper",
	Long: `Аутентификация на сервере StockKeeper.

После входа токен сохраняется в файле состояния и используется
фоновой синхронизацией и push-каналом.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		types.Title("Вход в систему")

		login := strings.TrimSpace(loginName)
		if login == "" {
			fmt.Print("Логин: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("ошибка чтения логина: %w", err)
			}
			login = strings.TrimSpace(line)
		}

		fmt.Print("Пароль: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		fmt.Println()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Login(ctx, login, string(password)); err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		fmt.Printf("%s Вход выполнен успешно!\n", types.Success("✓"))
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginName, "login", "l", "", "логин пользователя")
}
