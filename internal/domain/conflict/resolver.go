package conflict

import (
	"fmt"

	"stockkeeper/internal/domain/product"
)

// ManualFunc - внешний шаг ручного разрешения (например, вопрос оператору).
type ManualFunc func(local, remote *product.Product) (Side, error)

// Resolver выбирает победителя между локальной и удаленной версией товара.
// Не изменяет входные данные и не выполняет ввод-вывод (кроме Manual, если задан).
type Resolver struct {
	Manual ManualFunc
}

type Resolution struct {
	Winner   Side
	Strategy Strategy
	Notes    string
}

// Resolve без ручного шага: manual сводится к latest-wins.
func Resolve(local, remote *product.Product, strategy Strategy) (*product.Product, Resolution) {
	return Resolver{}.Resolve(local, remote, strategy)
}

func (r Resolver) Resolve(local, remote *product.Product, strategy Strategy) (*product.Product, Resolution) {
	res := Resolution{Strategy: strategy}

	switch strategy {
	case ServerWins:
		res.Winner = Remote
		res.Notes = "server-wins: remote version taken"
	case ClientWins:
		res.Winner = Local
		res.Notes = "client-wins: local version kept"
	case Manual:
		if r.Manual == nil {
			res.Winner, res.Notes = latest(local, remote)
			res.Notes = "manual: no resolver configured, delegated to latest-wins; " + res.Notes
			break
		}
		side, err := r.Manual(local, remote)
		if err != nil {
			res.Winner, res.Notes = latest(local, remote)
			res.Notes = fmt.Sprintf("manual: resolver failed (%v), delegated to latest-wins; %s", err, res.Notes)
			break
		}
		res.Winner = side
		res.Notes = "manual: " + side.String() + " chosen"
	default:
		res.Winner, res.Notes = latest(local, remote)
	}

	if res.Winner == Remote {
		return remote, res
	}
	return local, res
}

// latest: строго более поздний remote побеждает, равенство - в пользу local.
func latest(local, remote *product.Product) (Side, string) {
	if remote.LastModifiedAt.After(local.LastModifiedAt) {
		return Remote, "latest-wins: remote modified later"
	}
	if remote.LastModifiedAt.Equal(local.LastModifiedAt) {
		return Local, "latest-wins: equal timestamps, local kept"
	}
	return Local, "latest-wins: local modified later"
}

// Arbiter адаптирует Resolver к пакетному upsert хранилища.
func (r Resolver) Arbiter(strategy Strategy, onResolve func(local, remote *product.Product, res Resolution)) product.Arbiter {
	return func(local, remote *product.Product) bool {
		_, res := r.Resolve(local, remote, strategy)
		if onResolve != nil {
			onResolve(local, remote, res)
		}
		return res.Winner == Local
	}
}
