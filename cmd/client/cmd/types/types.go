// Package types - общее для подкоманд клиента: доступ к приложению и вывод.
package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stockkeeper/internal/app/client"
)

type ctxKey int

const (
	ClientAppKey ctxKey = iota
	JSONOutputKey
)

var (
	Success = color.New(color.FgGreen).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Failure = color.New(color.FgRed).SprintFunc()
	Header  = color.New(color.Bold, color.FgCyan).SprintFunc()
)

// WithApp кладет приложение и режим вывода в контекст команды.
func WithApp(ctx context.Context, app *client.App, jsonOutput bool) context.Context {
	ctx = context.WithValue(ctx, ClientAppKey, app)
	return context.WithValue(ctx, JSONOutputKey, jsonOutput)
}

// App достает приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, errors.New("приложение не инициализировано")
	}
	return app, nil
}

func JSONOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Context().Value(JSONOutputKey).(bool)
	return v
}

func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func Title(s string) {
	fmt.Println(Header("=== " + s + " ==="))
	fmt.Println()
}
