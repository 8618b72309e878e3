package events

// ---- Text ----

// DrawInfoPayload is a drawinfo text message.
type DrawInfoPayload struct {
	Color   int
	Message string
}

// DrawExtInfoPayload is a drawextinfo text message.
type DrawExtInfoPayload struct {
	Color   int
	Type    int
	Subtype int
	Message string
}

// QueryPayload is a server prompt awaiting a reply.
type QueryPayload struct {
	Flags  int
	Prompt string
}

// FailurePayload reports a rejected client command.
type FailurePayload struct {
	Command string
	Message string
}

// MusicPayload names the music to play.
type MusicPayload struct {
	Music string
}

// SentReplyPayload is emitted after a reply command was sent.
type SentReplyPayload struct {
	Text string
}

// ---- Timing ----

// TickPayload carries the server tick counter.
type TickPayload struct {
	Tick uint32
}

// ComcPayload acknowledges an ncom command.
type ComcPayload struct {
	Packet uint16
	Time   uint32
}

// PickupPayload carries the pickup mode mask.
type PickupPayload struct {
	Mask uint32
}

// ---- Sound ----

// SoundPayload is a legacy sound command.
type SoundPayload struct {
	X    int8
	Y    int8
	Num  uint16
	Type uint8
}

// Sound2Payload is a sound2 command.
type Sound2Payload struct {
	X      int8
	Y      int8
	Dir    uint8
	Volume uint8
	Type   uint8
	Action string
	Name   string
}

// ---- Handshake ----

// VersionPayload is the server's version announcement.
type VersionPayload struct {
	CSVal int
	SCVal int
	Info  string
}

// SetupEntry is one echoed setup option.
type SetupEntry struct {
	Name  string
	Value string
}

// SetupPayload is a setup reply.
type SetupPayload struct {
	Options []SetupEntry
}

// ImageInfo is the decoded replyinfo image_info block.
type ImageInfo struct {
	NumImages int
	Checksum  uint32
	Facesets  []string
}

// SkillEntry is one line of replyinfo skill_info.
type SkillEntry struct {
	ID   int
	Name string
	Face int
}

// KnowledgeType is one line of replyinfo knowledge_info.
type KnowledgeType struct {
	Type    string
	Name    string
	Face    int
	Attempt bool
}

// ReplyInfoPayload is a replyinfo answer. Exactly one of the typed fields is
// populated for known info types; Data holds the raw block otherwise.
type ReplyInfoPayload struct {
	Info           string
	ImageInfo      *ImageInfo
	Skills         []SkillEntry
	ExpTable       []uint64
	KnowledgeTypes []KnowledgeType
	Data           []byte
}

// IgnoredPayload is produced by commands whose content is not interpreted.
type IgnoredPayload struct {
	Data []byte
}

// EmptyPayload is produced by commands without arguments.
type EmptyPayload struct{}

// ---- Items ----

// ItemPayload is one item record of an item2 command.
type ItemPayload struct {
	Location  uint32
	Tag       uint32
	Flags     uint32
	Weight    int32
	Face      uint32
	Name      string
	NamePl    string
	Anim      uint16
	AnimSpeed uint8
	Nrof      uint32
	Type      uint16
}

// Item2Payload adds items to one location.
type Item2Payload struct {
	Location uint32
	Items    []ItemPayload
}

// UpdItemPayload changes selected fields of one item. Only the fields whose
// bit is set in Flags are meaningful; the others are zero.
type UpdItemPayload struct {
	Flags     uint8
	Tag       uint32
	Location  uint32
	ItemFlags uint32
	Weight    int32
	Face      uint32
	Name      string
	NamePl    string
	Anim      uint16
	AnimSpeed uint8
	Nrof      uint32
}

// Has reports whether the given update flag is set.
func (p UpdItemPayload) Has(flag uint8) bool {
	return p.Flags&flag != 0
}

// DelItemPayload removes items.
type DelItemPayload struct {
	Tags []uint32
}

// DelInvPayload clears the contents of a container.
type DelInvPayload struct {
	Tag int
}

// PlayerPayload identifies the player object.
type PlayerPayload struct {
	Tag    uint32
	Weight int32
	Face   uint32
	Name   string
}

// ---- Spells, quests, knowledge ----

// SpellPayload is one spell record of an addspell command.
type SpellPayload struct {
	Tag          uint32
	Level        uint16
	CastingTime  uint16
	Mana         uint16
	Grace        uint16
	Damage       int16
	Skill        uint8
	Path         uint32
	Face         uint32
	Name         string
	Message      string
	Usage        uint8
	Requirements string
}

// AddSpellPayload adds spells.
type AddSpellPayload struct {
	Spells []SpellPayload
}

// UpdSpellPayload changes selected spell fields.
type UpdSpellPayload struct {
	Flags  uint8
	Tag    uint32
	Mana   uint16
	Grace  uint16
	Damage int16
}

// DelSpellPayload removes a spell.
type DelSpellPayload struct {
	Tag uint32
}

// QuestPayload is one quest record of an addquest command.
type QuestPayload struct {
	Code   uint32
	Title  string
	Face   uint32
	Replay uint8
	Parent uint32
	End    uint8
	Step   string
}

// AddQuestPayload adds quests.
type AddQuestPayload struct {
	Quests []QuestPayload
}

// UpdQuestPayload advances a quest.
type UpdQuestPayload struct {
	Code uint32
	End  uint8
	Step string
}

// KnowledgePayload is one record of an addknowledge command.
type KnowledgePayload struct {
	Code  uint32
	Type  string
	Title string
	Face  uint32
}

// AddKnowledgePayload adds knowledge items.
type AddKnowledgePayload struct {
	Items []KnowledgePayload
}

// ---- Stats ----

// StatKind is the wire type of a stat value.
type StatKind int

const (
	StatKindInt16 StatKind = iota
	StatKindInt32
	StatKindInt64
	StatKindString
	StatKindResist
	StatKindSkill
)

// StatUpdate is one stat of a stats command.
type StatUpdate struct {
	ID    int
	Kind  StatKind
	Value int64
	Text  string
	Level uint8
	Exp   uint64
}

// StatsPayload is a stats command.
type StatsPayload struct {
	Updates []StatUpdate
}

// ---- Faces ----

// Face2Payload announces a face.
type Face2Payload struct {
	Face     uint16
	Faceset  uint8
	Checksum uint32
	Name     string
}

// Image2Payload delivers face image data.
type Image2Payload struct {
	Face    uint32
	Faceset uint8
	Data    []byte
}

// SmoothPayload maps a face to its smoothing face.
type SmoothPayload struct {
	Face       uint16
	SmoothFace uint16
}

// AnimPayload defines an animation.
type AnimPayload struct {
	ID    uint16
	Flags uint16
	Faces []uint16
}

// ---- Map ----

// NewMapPayload clears the map view.
type NewMapPayload struct {
	Width  int
	Height int
}

// Map2UpdateKind discriminates map2 sub-commands.
type Map2UpdateKind int

const (
	Map2Clear Map2UpdateKind = iota
	Map2Darkness
	Map2Face
	Map2Animation
)

// Map2Update is one sub-command applied to a cell.
type Map2Update struct {
	Kind         Map2UpdateKind
	Layer        int
	Darkness     uint8
	Face         uint16
	Anim         uint16
	AnimType     uint8
	AnimSpeed    uint8
	HasAnimSpeed bool
	Smooth       uint8
	HasSmooth    bool
}

// Map2Cell is one coordinate block of a map2 command. Scroll blocks carry
// DX/DY and no updates.
type Map2Cell struct {
	X       int
	Y       int
	Scroll  bool
	DX      int
	DY      int
	Updates []Map2Update
}

// Map2Payload is a map2 command in wire order.
type Map2Payload struct {
	Cells []Map2Cell
}

// MagicMapPayload is a magic map view.
type MagicMapPayload struct {
	Width  int
	Height int
	PX     int
	PY     int
	Data   []byte
}

// ---- Account ----

// CharacterInfo is one character of an accountplayers list.
type CharacterInfo struct {
	Name    string `json:"name"`
	Class   string `json:"class"`
	Race    string `json:"race"`
	Level   uint16 `json:"level"`
	Face    string `json:"face"`
	Party   string `json:"party"`
	Map     string `json:"map"`
	FaceNum uint16 `json:"face_num"`
}

// AccountPlayersPayload is the decoded accountplayers command.
type AccountPlayersPayload struct {
	Characters []CharacterInfo
}

// AccountListStart opens a character list notification sequence.
type AccountListStart struct {
	AccountName string
}

// AccountCharacter is one character of a character list sequence.
type AccountCharacter struct {
	Character CharacterInfo
}

// AccountListEnd closes a character list notification sequence.
type AccountListEnd struct {
	Count int
}

// ManageAccount asks the UI to show the account login dialog.
type ManageAccount struct{}

// StartPlaying reports that a character entered the game.
type StartPlaying struct{}

// AddMeFailed reports a rejected addme or accountplay.
type AddMeFailed struct{}

// ---- Session ----

// ConnectionStatePayload reports a handshake transition.
type ConnectionStatePayload struct {
	State    ConnectionState
	Previous ConnectionState
	Reason   string
}

// TransportPayload reports a socket lifecycle change.
type TransportPayload struct {
	Phase  TransportPhase
	Addr   string
	Reason string
}

// ---- Debugging ----

// RawPacketPayload is delivered to raw packet watchers once per frame.
type RawPacketPayload struct {
	Command  string
	Category RawCategory
	Args     []byte
	Outbound bool
}

// PacketSentPayload is emitted after a frame was written to the socket.
type PacketSentPayload struct {
	Data []byte
}
