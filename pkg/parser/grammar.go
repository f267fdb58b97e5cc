package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Building blocks shared by the grammars below.
const (
	// "Name<Slot><ID>" or "Name<Slot><ID><Team>" (4 groups)
	playerExpr = `"(.+?)<(\d+)><([^<>]*)>(?:<([^<>]*)>)?"`

	// optional " [x y z]" (3 groups)
	positionExpr = `(?: \[(-?\d+) (-?\d+) (-?\d+)\])?`
)

// grammar recognizes one line shape and builds its event from the submatches.
type grammar struct {
	event   EventType
	pattern *regexp.Regexp
	build   func(g *groups) Event
}

func rule(event EventType, expr string, build func(g *groups) Event) grammar {
	expr = strings.ReplaceAll(expr, "<P>", playerExpr)
	expr = strings.ReplaceAll(expr, "<POS>", positionExpr)
	return grammar{event: event, pattern: regexp.MustCompile(expr), build: build}
}

// grammars is the catalogue in priority order. The first match wins, so
// more specific shapes must precede generic ones.
var grammars = []grammar{
	rule(EventRoundEvent, `^World triggered "([^"]+)"(?: on "([^"]+)")?`, func(g *groups) Event {
		return RoundEvent{Trigger: g.str(), Map: g.str()}
	}),
	// Newer servers insert a game-type token between mode and map.
	rule(EventGameOver, `^Game Over: (\S+) (?:\S+ )*?(\S+) score (\d+):(\d+) after (\d+) min`, func(g *groups) Event {
		return GameOver{
			Mode:            g.str(),
			Map:             g.str(),
			ScoreA:          g.int("score_a"),
			ScoreB:          g.int("score_b"),
			DurationMinutes: g.int("duration_minutes"),
		}
	}),
	rule(EventKill, `^<P><POS> killed <P><POS> with "([^"]+)"(.*)$`, func(g *groups) Event {
		k := Kill{}
		k.Killer = g.player("killer")
		k.KillerPosition = g.position("killer_position")
		k.Victim = g.player("victim")
		k.VictimPosition = g.position("victim_position")
		k.Weapon = g.str()
		k.Headshot = strings.Contains(g.str(), "headshot")
		return k
	}),
	rule(EventPurchase, `^<P> purchased "([^"]+)"$`, func(g *groups) Event {
		return Purchase{Player: g.player("player"), Item: g.str()}
	}),
	rule(EventPickup, `^<P> picked up "([^"]+)"$`, func(g *groups) Event {
		return Pickup{Player: g.player("player"), Item: g.str()}
	}),
	rule(EventChat, `^<P> say(_team)? "(.*)"$`, func(g *groups) Event {
		p := g.player("player")
		teamOnly := g.str() != ""
		return Chat{Player: p, TeamOnly: teamOnly, Message: g.str()}
	}),
	rule(EventGrenadeThrown, `^<P> threw (\S+) \[(-?\d+) (-?\d+) (-?\d+)\]`, func(g *groups) Event {
		return GrenadeThrown{
			Player:   g.player("player"),
			Item:     g.str(),
			Position: Position{X: g.int("x"), Y: g.int("y"), Z: g.int("z")},
		}
	}),
	rule(EventPlayerConnected, `^<P> connected, address "(.+):(\d+)"$`, func(g *groups) Event {
		return PlayerConnected{Player: g.player("player"), Address: g.str(), Port: g.int("port")}
	}),
	rule(EventAttack, `^<P><POS> attacked <P><POS> with "([^"]+)" \(damage "(\d+)"\) \(damage_armor "(\d+)"\) \(health "(\d+)"\) \(armor "(\d+)"\) \(hitgroup "([^"]+)"\)`, func(g *groups) Event {
		a := Attack{}
		a.Attacker = g.player("attacker")
		a.AttackerPosition = g.position("attacker_position")
		a.Victim = g.player("victim")
		a.VictimPosition = g.position("victim_position")
		a.Weapon = g.str()
		a.Damage = g.int("damage")
		a.DamageArmor = g.int("damage_armor")
		a.Health = g.int("health")
		a.Armor = g.int("armor")
		a.Hitgroup = g.str()
		return a
	}),
	rule(EventSuicide, `^<P><POS> committed suicide with "([^"]+)"`, func(g *groups) Event {
		s := Suicide{Player: g.player("player")}
		s.Position = g.position("position")
		s.Weapon = g.str()
		return s
	}),
	rule(EventPlayerDisconnected, `^<P> disconnected \(reason "([^"]*)"\)`, func(g *groups) Event {
		return PlayerDisconnected{Player: g.player("player"), Reason: g.str()}
	}),
	rule(EventPlayerEntered, `^<P> entered the game$`, func(g *groups) Event {
		return PlayerEntered{Player: g.player("player")}
	}),
	rule(EventTeamSwitch, `^<P> switched from team <([^<>]*)> to <([^<>]*)>$`, func(g *groups) Event {
		return TeamSwitch{Player: g.player("player"), From: g.team("from"), To: g.team("to")}
	}),
	rule(EventItemDropped, `^<P> dropped "([^"]+)"`, func(g *groups) Event {
		return ItemDropped{Player: g.player("player"), Item: g.str()}
	}),
	rule(EventPlayerTriggered, `^<P> triggered "([^"]+)"`, func(g *groups) Event {
		return PlayerTriggered{Player: g.player("player"), Trigger: g.str()}
	}),
	rule(EventTeamTriggered, `^Team "([^"]+)" triggered "([^"]+)"(?: \(CT "(\d+)"\) \(T "(\d+)"\))?`, func(g *groups) Event {
		return TeamTriggered{
			Team:    g.team("team"),
			Trigger: g.str(),
			ScoreCT: g.optInt("score_ct"),
			ScoreT:  g.optInt("score_t"),
		}
	}),
	rule(EventTeamScored, `^Team "([^"]+)" scored "(\d+)" with "(\d+)" players`, func(g *groups) Event {
		return TeamScored{Team: g.team("team"), Score: g.int("score"), Players: g.int("players")}
	}),
	rule(EventMatchStatus, `^MatchStatus: Score: (\d+):(\d+) on map "([^"]+)" RoundsPlayed: (-?\d+)`, func(g *groups) Event {
		return MatchStatus{
			ScoreCT:      g.int("score_ct"),
			ScoreT:       g.int("score_t"),
			Map:          g.str(),
			RoundsPlayed: g.int("rounds_played"),
		}
	}),
}

// groups walks submatches left to right. The first conversion error is
// kept and every later accessor returns a zero value.
type groups struct {
	m   []string
	i   int
	err error
}

func newGroups(m []string) *groups {
	return &groups{m: m, i: 1}
}

func (g *groups) next() string {
	if g.i >= len(g.m) {
		return ""
	}
	s := g.m[g.i]
	g.i++
	return s
}

func (g *groups) fail(format string, args ...any) {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
}

func (g *groups) str() string {
	return g.next()
}

func (g *groups) int(field string) int {
	s := g.next()
	n, err := strconv.Atoi(s)
	if err != nil {
		g.fail("invalid %s %q", field, s)
		return 0
	}
	return n
}

func (g *groups) optInt(field string) *int {
	if g.i < len(g.m) && g.m[g.i] == "" {
		g.i++
		return nil
	}
	n := g.int(field)
	return &n
}

func (g *groups) team(field string) Team {
	t := Team(g.next())
	if !t.Valid() {
		g.fail("%s: unknown team %q", field, string(t))
	}
	return t
}

func (g *groups) player(role string) Player {
	p := Player{Name: g.next()}
	slot := g.next()
	n, err := strconv.Atoi(slot)
	if err != nil {
		g.fail("%s: invalid slot %q", role, slot)
	}
	p.Slot = n
	p.ID = g.next()
	p.Team = g.team(role)
	return p
}

func (g *groups) position(field string) *Position {
	if g.i < len(g.m) && g.m[g.i] == "" {
		g.i += 3
		return nil
	}
	return &Position{X: g.int(field + ".x"), Y: g.int(field + ".y"), Z: g.int(field + ".z")}
}
