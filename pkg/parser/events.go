package parser

// EventType labels a successfully parsed line.
type EventType string

const (
	EventRoundEvent         EventType = "round_event"
	EventGameOver           EventType = "game_over"
	EventKill               EventType = "kill"
	EventPurchase           EventType = "purchase"
	EventPickup             EventType = "pickup"
	EventChat               EventType = "chat"
	EventGrenadeThrown      EventType = "grenade_thrown"
	EventPlayerConnected    EventType = "player_connected"
	EventAttack             EventType = "attack"
	EventSuicide            EventType = "suicide"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerEntered      EventType = "player_entered"
	EventTeamSwitch         EventType = "team_switch"
	EventItemDropped        EventType = "item_dropped"
	EventPlayerTriggered    EventType = "player_triggered"
	EventTeamTriggered      EventType = "team_triggered"
	EventTeamScored         EventType = "team_scored"
	EventMatchStatus        EventType = "match_status"
)

// Event is one of the concrete event structs declared in this file.
// The set is closed: only types in this package implement it.
type Event interface {
	Type() EventType
	isEvent()
}

// Team is the side a player is on.
type Team string

const (
	TeamNone       Team = ""
	TeamCT         Team = "CT"
	TeamTerrorist  Team = "TERRORIST"
	TeamT          Team = "T"
	TeamSpectator  Team = "Spectator"
	TeamUnassigned Team = "Unassigned"
	TeamConsole    Team = "Console"
)

// Valid reports whether t is a team label CS2 emits.
func (t Team) Valid() bool {
	switch t {
	case TeamNone, TeamCT, TeamTerrorist, TeamT, TeamSpectator, TeamUnassigned, TeamConsole:
		return true
	}
	return false
}

// Player is a decoded "Name<Slot><ID><Team>" descriptor.
// ID is kept opaque since servers emit several identifier schemes.
type Player struct {
	Name string `json:"name"`
	Slot int    `json:"slot"`
	ID   string `json:"id"`
	Team Team   `json:"team"`
}

// Position is a world coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// RoundEvent is a `World triggered "<Name>"` line.
type RoundEvent struct {
	Trigger string `json:"trigger"`
	Map     string `json:"map,omitempty"`
}

// GameOver is the end-of-match summary line.
type GameOver struct {
	Mode            string `json:"mode"`
	Map             string `json:"map"`
	ScoreA          int    `json:"score_a"`
	ScoreB          int    `json:"score_b"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Kill is a frag.
type Kill struct {
	Killer         Player    `json:"killer"`
	Victim         Player    `json:"victim"`
	Weapon         string    `json:"weapon"`
	KillerPosition *Position `json:"killer_position,omitempty"`
	VictimPosition *Position `json:"victim_position,omitempty"`
	Headshot       bool      `json:"headshot,omitempty"`
}

// Purchase is a buy-menu purchase.
type Purchase struct {
	Player Player `json:"player"`
	Item   string `json:"item"`
}

// Pickup is an item picked up from the ground.
type Pickup struct {
	Player Player `json:"player"`
	Item   string `json:"item"`
}

// Chat is a say or say_team message.
type Chat struct {
	Player   Player `json:"player"`
	Message  string `json:"message"`
	TeamOnly bool   `json:"team_only,omitempty"`
}

// GrenadeThrown is a thrown projectile with its throw position.
type GrenadeThrown struct {
	Player   Player   `json:"player"`
	Item     string   `json:"item"`
	Position Position `json:"position"`
}

// PlayerConnected is a client connection.
type PlayerConnected struct {
	Player  Player `json:"player"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Attack is a damage event.
type Attack struct {
	Attacker         Player    `json:"attacker"`
	Victim           Player    `json:"victim"`
	Weapon           string    `json:"weapon"`
	Damage           int       `json:"damage"`
	DamageArmor      int       `json:"damage_armor"`
	Health           int       `json:"health"`
	Armor            int       `json:"armor"`
	Hitgroup         string    `json:"hitgroup"`
	AttackerPosition *Position `json:"attacker_position,omitempty"`
	VictimPosition   *Position `json:"victim_position,omitempty"`
}

// Suicide is a self-inflicted death.
type Suicide struct {
	Player   Player    `json:"player"`
	Weapon   string    `json:"weapon"`
	Position *Position `json:"position,omitempty"`
}

// PlayerDisconnected is a client leaving the server.
type PlayerDisconnected struct {
	Player Player `json:"player"`
	Reason string `json:"reason"`
}

// PlayerEntered is a client finishing its connection.
type PlayerEntered struct {
	Player Player `json:"player"`
}

// TeamSwitch is a player changing sides.
type TeamSwitch struct {
	Player Player `json:"player"`
	From   Team   `json:"from"`
	To     Team   `json:"to"`
}

// ItemDropped is an item dropped by a player.
type ItemDropped struct {
	Player Player `json:"player"`
	Item   string `json:"item"`
}

// PlayerTriggered is a named player trigger such as "Got_The_Bomb".
type PlayerTriggered struct {
	Player  Player `json:"player"`
	Trigger string `json:"trigger"`
}

// TeamTriggered is a named team trigger such as "SFUI_Notice_Terrorists_Win".
type TeamTriggered struct {
	Team    Team   `json:"team"`
	Trigger string `json:"trigger"`
	ScoreCT *int   `json:"score_ct,omitempty"`
	ScoreT  *int   `json:"score_t,omitempty"`
}

// TeamScored is a per-team score report.
type TeamScored struct {
	Team    Team `json:"team"`
	Score   int  `json:"score"`
	Players int  `json:"players"`
}

// MatchStatus is the periodic score line.
type MatchStatus struct {
	ScoreCT      int    `json:"score_ct"`
	ScoreT       int    `json:"score_t"`
	Map          string `json:"map"`
	RoundsPlayed int    `json:"rounds_played"`
}

func (RoundEvent) Type() EventType         { return EventRoundEvent }
func (GameOver) Type() EventType           { return EventGameOver }
func (Kill) Type() EventType               { return EventKill }
func (Purchase) Type() EventType           { return EventPurchase }
func (Pickup) Type() EventType             { return EventPickup }
func (Chat) Type() EventType               { return EventChat }
func (GrenadeThrown) Type() EventType      { return EventGrenadeThrown }
func (PlayerConnected) Type() EventType    { return EventPlayerConnected }
func (Attack) Type() EventType             { return EventAttack }
func (Suicide) Type() EventType            { return EventSuicide }
func (PlayerDisconnected) Type() EventType { return EventPlayerDisconnected }
func (PlayerEntered) Type() EventType      { return EventPlayerEntered }
func (TeamSwitch) Type() EventType         { return EventTeamSwitch }
func (ItemDropped) Type() EventType        { return EventItemDropped }
func (PlayerTriggered) Type() EventType    { return EventPlayerTriggered }
func (TeamTriggered) Type() EventType      { return EventTeamTriggered }
func (TeamScored) Type() EventType         { return EventTeamScored }
func (MatchStatus) Type() EventType        { return EventMatchStatus }

func (RoundEvent) isEvent()         {}
func (GameOver) isEvent()           {}
func (Kill) isEvent()               {}
func (Purchase) isEvent()           {}
func (Pickup) isEvent()             {}
func (Chat) isEvent()               {}
func (GrenadeThrown) isEvent()      {}
func (PlayerConnected) isEvent()    {}
func (Attack) isEvent()             {}
func (Suicide) isEvent()            {}
func (PlayerDisconnected) isEvent() {}
func (PlayerEntered) isEvent()      {}
func (TeamSwitch) isEvent()         {}
func (ItemDropped) isEvent()        {}
func (PlayerTriggered) isEvent()    {}
func (TeamTriggered) isEvent()      {}
func (TeamScored) isEvent()         {}
func (MatchStatus) isEvent()        {}
