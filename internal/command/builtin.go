package command

import (
	"strings"

	"devotions.gg/internal/favor"
	"devotions.gg/internal/protocol"
)

// Heal restores a player to their max health. Miracle command templates
// such as "heal {player}" run through it.
type Heal struct {
	Players Players
}

func (h Heal) Run(s Sender, args []string) string {
	if len(args) != 1 {
		s.SendMessage("<red>Usage: /heal <player>")
		return protocol.ErrBadRequest
	}
	if !s.HasPermission(AdminPermission) {
		s.SendMessage(msgNoPermission)
		return protocol.ErrNoPermission
	}
	p, ok := h.Players.PlayerByName(args[0])
	if !ok {
		s.SendMessage("<red>Player " + args[0] + " not found.")
		return protocol.ErrInvalidTarget
	}
	maxHP, ok := p.MaxHealth()
	if !ok {
		s.SendMessage("<red>" + p.Name() + " has no max health.")
		return protocol.ErrInvalidTarget
	}
	p.SetHealth(maxHP)
	s.SendMessage("<green>Healed " + p.Name() + ".")
	return ""
}

func (h Heal) Complete(_ Sender, args []string) []string {
	if len(args) != 1 {
		return nil
	}
	return FilterPrefix(onlineNames(h.Players), args[0])
}

// Say broadcasts a line to every online player.
type Say struct {
	Players Players
}

func (c Say) Run(s Sender, args []string) string {
	if len(args) == 0 {
		s.SendMessage("<red>Usage: /say <message>")
		return protocol.ErrBadRequest
	}
	if !s.HasPermission(AdminPermission) {
		s.SendMessage(msgNoPermission)
		return protocol.ErrNoPermission
	}
	text := "[" + s.Name() + "] " + strings.Join(args, " ")
	for _, p := range c.Players.OnlinePlayers() {
		p.SendMessage(text)
	}
	return ""
}

func (Say) Complete(Sender, []string) []string { return nil }

// Devote assigns a player to a deity: devote <player> <deity>.
type Devote struct {
	Ledger  *favor.Ledger
	Players Players
}

func (d Devote) Run(s Sender, args []string) string {
	if len(args) != 2 {
		s.SendMessage("<red>Usage: /devote <player> <deity>")
		return protocol.ErrBadRequest
	}
	if !s.HasPermission(AdminPermission) {
		s.SendMessage(msgNoPermission)
		return protocol.ErrNoPermission
	}
	p, ok := d.Players.PlayerByName(args[0])
	if !ok {
		s.SendMessage("<red>Player " + args[0] + " not found.")
		return protocol.ErrInvalidTarget
	}
	if err := d.Ledger.Devote(p.ID(), args[1]); err != nil {
		s.SendMessage("<red>" + err.Error())
		return protocol.ErrBadRequest
	}
	s.SendMessage("<green>" + p.Name() + " now worships " + args[1] + ".")
	return ""
}

func (d Devote) Complete(_ Sender, args []string) []string {
	if len(args) != 1 {
		return nil
	}
	return FilterPrefix(onlineNames(d.Players), args[0])
}

func onlineNames(players Players) []string {
	ps := players.OnlinePlayers()
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

// RegisterDefaults installs favor, devote, heal and say.
func RegisterDefaults(r *Registry, ledger *favor.Ledger, players Players) error {
	for name, h := range map[string]Handler{
		"favor":  Favor{Ledger: ledger, Players: players},
		"devote": Devote{Ledger: ledger, Players: players},
		"heal":   Heal{Players: players},
		"say":    Say{Players: players},
	} {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}
