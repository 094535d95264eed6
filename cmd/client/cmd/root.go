package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
	"golang.org/x/term"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/app/client"
	"stockkeeper/internal/app/client/config"
	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "stockkeeper",
	Short: "StockKeeper - офлайн-клиент кассы и склада",
	Long: `StockKeeper - клиент точки продаж, работающий без постоянного соединения.

Продажи и поступления пишутся в локальную базу и отправляются на сервер
через очередь синхронизации. Каталог товаров выгружается с сервера
с проверкой версий и разрешением конфликтов.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", types.Failure("Ошибка:"), err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	env := cfg.Env
	if debug {
		env = config.EnvLocal
	}
	log = logger.New(env)

	var opts []client.Option
	if cfg.ConflictStrategy == conflict.Manual && term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, client.WithManualResolver(promptConflict))
	}

	app, err = client.New(cmd.Context(), cfg, log, opts...)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(types.WithApp(cmd.Context(), app, jsonOutput))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "URL сервера StockKeeper")
}
