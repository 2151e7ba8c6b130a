package command

import (
	"errors"
	"strconv"
	"strings"

	"devotions.gg/internal/favor"
	"devotions.gg/internal/protocol"
	"devotions.gg/internal/sim/world"
)

const AdminPermission = "devotions.admin"

const (
	msgNoDevotion    = "<red>You don't have any devotion set."
	msgFavorUsage    = "<red>Usage: /favor <set|give|take> <player> <amount>"
	msgNoPermission  = "<red>You don't have permission to use this command."
	msgInvalidAmount = "<red>Invalid amount. Please enter a number."
	msgInvalidAction = "<red>Invalid action. Use set, give, or take."
	msgPlayersOnly   = "<red>Only players have favor to show."
)

var favorActions = []string{"set", "give", "take"}

// Players resolves online players for commands.
type Players interface {
	PlayerByName(name string) (world.Player, bool)
	OnlinePlayers() []world.Player
}

// Favor is the admin favor command:
//
//	favor                             show the sender's own favor
//	favor <set|give|take> <player> <n>
type Favor struct {
	Ledger  *favor.Ledger
	Players Players
}

func (f Favor) Run(s Sender, args []string) string {
	if len(args) == 0 {
		return f.showOwn(s)
	}
	if len(args) != 3 {
		s.SendMessage(msgFavorUsage)
		return protocol.ErrBadRequest
	}
	if !s.HasPermission(AdminPermission) {
		s.SendMessage(msgNoPermission)
		return protocol.ErrNoPermission
	}

	action := strings.ToLower(args[0])
	target, ok := f.Players.PlayerByName(args[1])
	if !ok {
		s.SendMessage("<red>Player " + args[1] + " not found.")
		return protocol.ErrInvalidTarget
	}
	amount, err := strconv.Atoi(args[2])
	if err != nil {
		s.SendMessage(msgInvalidAmount)
		return protocol.ErrBadRequest
	}
	if !f.Ledger.Has(target.ID()) {
		s.SendMessage("<red>" + target.Name() + " doesn't worship any deity.")
		return protocol.ErrNoRecord
	}

	switch action {
	case "set", "give", "take":
		if err := f.Ledger.Apply(target.ID(), action, amount); err != nil {
			s.SendMessage("<red>" + err.Error())
			return protocol.ErrInternal
		}
	default:
		s.SendMessage(msgInvalidAction)
		return protocol.ErrBadRequest
	}

	n, _ := f.Ledger.Get(target.ID())
	s.SendMessage("<green>" + target.Name() + "'s favor has been set to " + favor.Text(n))
	return ""
}

func (f Favor) showOwn(s Sender) string {
	p, ok := s.(world.Player)
	if !ok {
		s.SendMessage(msgPlayersOnly)
		return protocol.ErrBadRequest
	}
	n, err := f.Ledger.Get(p.ID())
	if errors.Is(err, favor.ErrNoRecord) {
		s.SendMessage(msgNoDevotion)
		return protocol.ErrNoRecord
	}
	s.SendMessage("<yellow>Your current favor is " + favor.Text(n))
	return ""
}

func (f Favor) Complete(_ Sender, args []string) []string {
	switch len(args) {
	case 1:
		return FilterPrefix(favorActions, args[0])
	case 2:
		return FilterPrefix(onlineNames(f.Players), args[1])
	}
	return nil
}
