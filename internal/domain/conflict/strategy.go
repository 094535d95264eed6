package conflict

import "fmt"

type Strategy string

const (
	ServerWins Strategy = "server-wins"
	ClientWins Strategy = "client-wins"
	LatestWins Strategy = "latest-wins"
	Manual     Strategy = "manual"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case ServerWins, ClientWins, LatestWins, Manual:
		return st, nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q", s)
}

// Side - чья версия победила.
type Side int

const (
	Local Side = iota
	Remote
)

func (s Side) String() string {
	if s == Remote {
		return "remote"
	}
	return "local"
}
