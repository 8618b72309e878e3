package protocol

// Outbound payload builders. Each function resets b and writes one complete
// command payload into it; the caller frames and sends b.Build(). Callers
// sharing one builder must serialize access to it.

// BuildVersion writes "version <cs> <sc> <client name>".
func BuildVersion(b *PacketBuilder, clientName string) {
	b.Reset()
	b.WriteCommand(CmdVersion, true).
		WriteDecimal(ClientProtocolVersion).WriteSpace().
		WriteDecimal(ServerProtocolVersion).WriteSpace().
		WriteASCII(clientName)
}

// BuildSetup writes "setup <name> <value>..." for the given options.
func BuildSetup(b *PacketBuilder, options ...SetupOption) {
	b.Reset()
	b.WriteCommand(CmdSetup, true)
	for i, opt := range options {
		if i > 0 {
			b.WriteSpace()
		}
		b.WriteASCII(opt.Name).WriteSpace().WriteASCII(opt.Value)
	}
}

// BuildRequestInfo writes "requestinfo <info>".
func BuildRequestInfo(b *PacketBuilder, info string) {
	b.Reset()
	b.WriteCommand(CmdRequestInfo, true).WriteASCII(info)
}

// BuildToggleExtendedText writes "toggleextendedtext <type>...".
func BuildToggleExtendedText(b *PacketBuilder, types ...int) {
	b.Reset()
	b.WriteCommand(CmdToggleExtendedText, len(types) > 0)
	for i, t := range types {
		if i > 0 {
			b.WriteSpace()
		}
		b.WriteDecimal(t)
	}
}

// BuildAddMe writes the argument-less addme command.
func BuildAddMe(b *PacketBuilder) {
	b.Reset()
	b.WriteCommand(CmdAddMe, false)
}

// BuildAccountLogin writes accountlogin with u8-prefixed login and password.
func BuildAccountLogin(b *PacketBuilder, login, password string) {
	b.Reset()
	b.WriteCommand(CmdAccountLogin, true).WriteString8(login).WriteString8(password)
}

// BuildAccountPlay writes "accountplay <character>".
func BuildAccountPlay(b *PacketBuilder, character string) {
	b.Reset()
	b.WriteCommand(CmdAccountPlay, true).WriteASCII(character)
}

// BuildAccountAddPlayer links an existing character to the logged in account.
func BuildAccountAddPlayer(b *PacketBuilder, force bool, login, password string) {
	b.Reset()
	var f uint8
	if force {
		f = 1
	}
	b.WriteCommand(CmdAccountAddPlayer, true).WriteU8(f).WriteString8(login).WriteString8(password)
}

// BuildAccountNew writes accountnew with u8-prefixed login and password.
func BuildAccountNew(b *PacketBuilder, login, password string) {
	b.Reset()
	b.WriteCommand(CmdAccountNew, true).WriteString8(login).WriteString8(password)
}

// BuildAccountPw writes accountpw with u8-prefixed old and new passwords.
func BuildAccountPw(b *PacketBuilder, oldPassword, newPassword string) {
	b.Reset()
	b.WriteCommand(CmdAccountPw, true).WriteString8(oldPassword).WriteString8(newPassword)
}

// BuildCreatePlayer writes createplayer with u8-prefixed name and password.
func BuildCreatePlayer(b *PacketBuilder, name, password string) {
	b.Reset()
	b.WriteCommand(CmdCreatePlayer, true).WriteString8(name).WriteString8(password)
}

// BuildApply writes "apply <tag>".
func BuildApply(b *PacketBuilder, tag int) {
	b.Reset()
	b.WriteCommand(CmdApply, true).WriteDecimal(tag)
}

// BuildAskFace writes "askface <face>".
func BuildAskFace(b *PacketBuilder, face int) {
	b.Reset()
	b.WriteCommand(CmdAskFace, true).WriteDecimal(face)
}

// BuildExamine writes "examine <tag>".
func BuildExamine(b *PacketBuilder, tag int) {
	b.Reset()
	b.WriteCommand(CmdExamine, true).WriteDecimal(tag)
}

// BuildLock writes lock with a raw flag byte and a u32 tag.
func BuildLock(b *PacketBuilder, lock bool, tag uint32) {
	b.Reset()
	var f uint8
	if lock {
		f = 1
	}
	b.WriteCommand(CmdLock, true).WriteU8(f).WriteU32(tag)
}

// BuildLookAt writes "lookat <dx> <dy>".
func BuildLookAt(b *PacketBuilder, dx, dy int) {
	b.Reset()
	b.WriteCommand(CmdLookAt, true).WriteDecimal(dx).WriteSpace().WriteDecimal(dy)
}

// BuildMark writes mark with a u32 tag.
func BuildMark(b *PacketBuilder, tag uint32) {
	b.Reset()
	b.WriteCommand(CmdMark, true).WriteU32(tag)
}

// BuildMove writes "move <to> <tag> <nrof>".
func BuildMove(b *PacketBuilder, to, tag, nrof int) {
	b.Reset()
	b.WriteCommand(CmdMove, true).
		WriteDecimal(to).WriteSpace().
		WriteDecimal(tag).WriteSpace().
		WriteDecimal(nrof)
}

// BuildNcom writes ncom with a u16 sequence number, a u32 repeat count and
// the command text.
func BuildNcom(b *PacketBuilder, seq uint16, repeat uint32, command string) {
	b.Reset()
	b.WriteCommand(CmdNcom, true).WriteU16(seq).WriteU32(repeat).WriteASCII(command)
}

// BuildReply writes "reply <text>".
func BuildReply(b *PacketBuilder, text string) {
	b.Reset()
	b.WriteCommand(CmdReply, true).WriteASCII(text)
}
