package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"stockkeeper/cmd/client/cmd/types"
	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/domain/product"
)

// promptConflict - ручное разрешение: оператор выбирает сторону по списку расхождений.
func promptConflict(local, remote *product.Product) (conflict.Side, error) {
	fmt.Println()
	fmt.Println(types.Warning(fmt.Sprintf("Конфликт по товару #%d %s", local.ID, local.Name)))
	for _, d := range conflict.DetectConflicts(local, remote) {
		fmt.Println("  •", d.String())
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Оставить [l]окальную или взять [r] серверную версию? ")
		answer, err := reader.ReadString('\n')
		if err != nil {
			return conflict.Local, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "l", "local":
			return conflict.Local, nil
		case "r", "remote":
			return conflict.Remote, nil
		}
	}
}
