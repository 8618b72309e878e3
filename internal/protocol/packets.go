// Package protocol implements the binary wire protocol spoken between the
// client and a Crossfire game server. Every frame carries a 2-byte big-endian
// length prefix followed by a payload that starts with an ASCII command name.
// The package contains the frame codec, the byte cursor used by the payload
// decoders, the command dispatcher and the outbound payload builders.
package protocol

// MaxPacketSize is the maximum payload size of a single frame.
const MaxPacketSize = 65535

// LengthPrefixSize is the size of the frame length prefix in bytes.
const LengthPrefixSize = 2

// Protocol versions announced in the outbound version command.
const (
	ClientProtocolVersion = 1023
	ServerProtocolVersion = 1029
)

// Inbound command names.
const (
	CmdAccountPlayers  = "accountplayers"
	CmdAddKnowledge    = "addknowledge"
	CmdAddMeFailed     = "addme_failed"
	CmdAddMeSuccess    = "addme_success"
	CmdAddQuest        = "addquest"
	CmdAddSpell        = "addspell"
	CmdAnim            = "anim"
	CmdComc            = "comc"
	CmdDelInv          = "delinv"
	CmdDelItem         = "delitem"
	CmdDelSpell        = "delspell"
	CmdDrawExtInfo     = "drawextinfo"
	CmdDrawInfo        = "drawinfo"
	CmdExtendedInfoSet = "ExtendedInfoSet"
	CmdExtendedTextSet = "ExtendedTextSet"
	CmdFace2           = "face2"
	CmdFailure         = "failure"
	CmdGoodbye         = "goodbye"
	CmdImage2          = "image2"
	CmdItem2           = "item2"
	CmdMagicMap        = "magicmap"
	CmdMap2            = "map2"
	CmdMapExtended     = "mapextended"
	CmdMusic           = "music"
	CmdNewMap          = "newmap"
	CmdPickup          = "pickup"
	CmdPlayer          = "player"
	CmdQuery           = "query"
	CmdReplyInfo       = "replyinfo"
	CmdSetup           = "setup"
	CmdSmooth          = "smooth"
	CmdSound           = "sound"
	CmdSound2          = "sound2"
	CmdStats           = "stats"
	CmdTick            = "tick"
	CmdUpdItem         = "upditem"
	CmdUpdQuest        = "updquest"
	CmdUpdSpell        = "updspell"
	CmdVersion         = "version"
)

// Outbound command names.
const (
	CmdAccountLogin       = "accountlogin"
	CmdAccountPlay        = "accountplay"
	CmdAccountAddPlayer   = "accountaddplayer"
	CmdAccountNew         = "accountnew"
	CmdAccountPw          = "accountpw"
	CmdCreatePlayer       = "createplayer"
	CmdAddMe              = "addme"
	CmdApply              = "apply"
	CmdAskFace            = "askface"
	CmdExamine            = "examine"
	CmdLock               = "lock"
	CmdLookAt             = "lookat"
	CmdMark               = "mark"
	CmdMove               = "move"
	CmdNcom               = "ncom"
	CmdReply              = "reply"
	CmdRequestInfo        = "requestinfo"
	CmdToggleExtendedText = "toggleextendedtext"
)

// requestinfo / replyinfo types.
const (
	InfoImageInfo     = "image_info"
	InfoSkillInfo     = "skill_info"
	InfoExpTable      = "exp_table"
	InfoKnowledgeInfo = "knowledge_info"
)

// Setup option names.
const (
	SetupWantPickup        = "want_pickup"
	SetupFaceset           = "faceset"
	SetupSound2            = "sound2"
	SetupExp64             = "exp64"
	SetupMap2Cmd           = "map2cmd"
	SetupDarkness          = "darkness"
	SetupNewMapCmd         = "newmapcmd"
	SetupFaceCache         = "facecache"
	SetupExtendedTextInfos = "extendedTextInfos"
	SetupItemCmd           = "itemcmd"
	SetupSpellMon          = "spellmon"
	SetupTick              = "tick"
	SetupExtendedStats     = "extended_stats"
	SetupLoginMethod       = "loginmethod"
	SetupNotifications     = "notifications"
	SetupMapSize           = "mapsize"
	SetupNumLookObjects    = "num_look_objects"
)

// SetupFalse is the value a server echoes for an option it does not support.
const SetupFalse = "FALSE"

// SetupOption is one key/value pair of an outbound setup command.
type SetupOption struct {
	Name  string
	Value string
}

// InitialSetupOptions is the fixed option list sent after the version exchange.
var InitialSetupOptions = []SetupOption{
	{SetupWantPickup, "1"},
	{SetupFaceset, "0"},
	{SetupSound2, "3"},
	{SetupExp64, "1"},
	{SetupMap2Cmd, "1"},
	{SetupDarkness, "1"},
	{SetupNewMapCmd, "1"},
	{SetupFaceCache, "1"},
	{SetupExtendedTextInfos, "1"},
	{SetupItemCmd, "2"},
	{SetupSpellMon, "1"},
	{SetupTick, "1"},
	{SetupExtendedStats, "1"},
	{SetupLoginMethod, "2"},
	{SetupNotifications, "3"},
}

// Item update flags of the upditem command, in decode order.
const (
	UpdLocation  byte = 0x01
	UpdFlags     byte = 0x02
	UpdWeight    byte = 0x04
	UpdFace      byte = 0x08
	UpdName      byte = 0x10
	UpdAnim      byte = 0x20
	UpdAnimSpeed byte = 0x40
	UpdNrof      byte = 0x80
)

// Spell update flags of the updspell command, in decode order.
const (
	UpdSpellMana   byte = 0x01
	UpdSpellGrace  byte = 0x02
	UpdSpellDamage byte = 0x04
)

// Character list attribute types of the accountplayers command.
const (
	AclName    byte = 1
	AclClass   byte = 2
	AclRace    byte = 3
	AclLevel   byte = 4
	AclFace    byte = 5
	AclParty   byte = 6
	AclMap     byte = 7
	AclFaceNum byte = 8
)

// map2 constants.
const (
	Map2CoordOffset    = 15
	Map2TypeClear      = 0x00
	Map2TypeDarkness   = 0x01
	Map2LayerStart     = 0x10
	Map2Layers         = 10
	Map2CoordNormal    = 0
	Map2CoordScroll    = 1
	Map2EndOfCell      = 0xFF
	FaceIsAnim         = 0x8000
	AnimMask           = 0x1FFF
	AnimTypeShift      = 13
	AnimTypeMask       = 0x03
	DefaultMapWidth    = 11
	DefaultMapHeight   = 11
	DefaultLookObjects = 50
)

// Stat identifiers of the stats command.
const (
	StatHP          = 1
	StatMaxHP       = 2
	StatSP          = 3
	StatMaxSP       = 4
	StatStr         = 5
	StatInt         = 6
	StatWis         = 7
	StatDex         = 8
	StatCon         = 9
	StatCha         = 10
	StatExp         = 11
	StatLevel       = 12
	StatWC          = 13
	StatAC          = 14
	StatDam         = 15
	StatArmour      = 16
	StatSpeed       = 17
	StatFood        = 18
	StatWeapSp      = 19
	StatRange       = 20
	StatTitle       = 21
	StatPow         = 22
	StatGrace       = 23
	StatMaxGrace    = 24
	StatFlags       = 25
	StatWeightLim   = 26
	StatExp64       = 28
	StatSpellAttune = 29
	StatSpellRepel  = 30
	StatSpellDeny   = 31
	StatRaceStr     = 32
	StatGolemMaxHP  = 54
	StatCharFlags   = 55
	StatGodName     = 56
	StatOverload    = 57

	StatResistStart = 100
	StatResistEnd   = 117

	StatSkillInfo = 140
	NumSkills     = 50
)

// Message types understood by the client, announced via toggleextendedtext.
const (
	MsgTypeFirst = 1
	MsgTypeLast  = 20
)
