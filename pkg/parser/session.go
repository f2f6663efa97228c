package parser

import (
	"strings"

	"github.com/pkg/errors"
)

// Action is a verb understood by the interactive quote session
type Action string

const (
	ActionBuy     Action = "buy"
	ActionSell    Action = "sell"
	ActionAmount  Action = "amount"
	ActionFiat    Action = "fiat"
	ActionCrypto  Action = "crypto"
	ActionWallet  Action = "wallet"
	ActionShow    Action = "show"
	ActionConfirm Action = "confirm"
	ActionHelp    Action = "help"
	ActionQuit    Action = "quit"
)

// SessionCommand is one parsed line of the interactive session
type SessionCommand struct {
	Action Action
	Arg    string
}

// ParseSessionCommand parses a line typed into the quote session
// Examples:
//   - "buy", "sell"
//   - "amount 250.5" or just "250.5"
//   - "amount" (clears the field)
//   - "fiat eur", "crypto eth"
//   - "wallet 0xabc..."
func ParseSessionCommand(line string) (*SessionCommand, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return &SessionCommand{Action: ActionShow}, nil
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	// A bare number edits the active amount
	if amountPattern.MatchString(fields[0]) && len(fields) == 1 {
		return &SessionCommand{Action: ActionAmount, Arg: fields[0]}, nil
	}

	switch verb {
	case "buy", "b":
		return noArgs(ActionBuy, args)
	case "sell", "s":
		return noArgs(ActionSell, args)
	case "show", "state":
		return noArgs(ActionShow, args)
	case "confirm", "ok":
		return noArgs(ActionConfirm, args)
	case "help", "h", "?":
		return noArgs(ActionHelp, args)
	case "quit", "exit", "q":
		return noArgs(ActionQuit, args)
	case "amount", "a":
		if len(args) > 1 {
			return nil, errors.New("amount takes a single value")
		}
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		return &SessionCommand{Action: ActionAmount, Arg: arg}, nil
	case "fiat", "crypto":
		if len(args) != 1 {
			return nil, errors.Errorf("usage: %s <code>", verb)
		}
		return &SessionCommand{Action: Action(verb), Arg: NormalizeCurrency(args[0])}, nil
	case "wallet", "w":
		if len(args) != 1 {
			return nil, errors.New("usage: wallet <address>")
		}
		return &SessionCommand{Action: ActionWallet, Arg: args[0]}, nil
	default:
		return nil, errors.Errorf("unknown command '%s' (type 'help' for a list)", fields[0])
	}
}

func noArgs(action Action, args []string) (*SessionCommand, error) {
	if len(args) > 0 {
		return nil, errors.Errorf("%s takes no arguments", action)
	}
	return &SessionCommand{Action: action}, nil
}
