package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/cfclient-project/cfclient/internal/events"
)

// drawinfo <color> <message>
func decodeDrawInfo(_ *Parser, r *Reader) (interface{}, error) {
	color, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	return events.DrawInfoPayload{Color: color, Message: r.ReadRest()}, nil
}

// drawextinfo <color> <type> <subtype> <message>
func decodeDrawExtInfo(_ *Parser, r *Reader) (interface{}, error) {
	color, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	typ, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	subtype, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	return events.DrawExtInfoPayload{
		Color:   color,
		Type:    typ,
		Subtype: subtype,
		Message: r.ReadRest(),
	}, nil
}

// failure <command> <message>
func decodeFailure(_ *Parser, r *Reader) (interface{}, error) {
	command := r.ReadToken()
	return events.FailurePayload{Command: command, Message: r.ReadRest()}, nil
}

func decodeMusic(_ *Parser, r *Reader) (interface{}, error) {
	return events.MusicPayload{Music: r.ReadRest()}, nil
}

// query <flags> <prompt>
func decodeQuery(_ *Parser, r *Reader) (interface{}, error) {
	flags, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	return events.QueryPayload{Flags: flags, Prompt: r.ReadRest()}, nil
}

// version <csval> <scval> <info>
func decodeVersion(_ *Parser, r *Reader) (interface{}, error) {
	csval, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	scval, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	return events.VersionPayload{CSVal: csval, SCVal: scval, Info: r.ReadRest()}, nil
}

// setup <name> <value> [<name> <value>...]
func decodeSetup(_ *Parser, r *Reader) (interface{}, error) {
	var options []events.SetupEntry
	for r.HasRemaining() {
		name := r.ReadToken()
		if name == "" {
			return nil, malformed("empty setup option name at offset %d", r.Offset())
		}
		if !r.HasRemaining() {
			return nil, malformed("setup option %s has no value", name)
		}
		options = append(options, events.SetupEntry{Name: name, Value: r.ReadToken()})
	}
	return events.SetupPayload{Options: options}, nil
}

// delinv <tag>
func decodeDelInv(_ *Parser, r *Reader) (interface{}, error) {
	tag, err := r.ReadDecimal()
	if err != nil {
		return nil, err
	}
	return events.DelInvPayload{Tag: tag}, nil
}

// magicmap <width> <height> <px> <py> <width*height bytes>
func decodeMagicMap(_ *Parser, r *Reader) (interface{}, error) {
	var dims [4]int
	for i := range dims {
		v, err := r.ReadDecimal()
		if err != nil {
			return nil, err
		}
		dims[i] = v
	}
	w, h := dims[0], dims[1]
	if w <= 0 || h <= 0 || h > r.Remaining()/w {
		return nil, malformed("magicmap size %dx%d with %d data bytes", w, h, r.Remaining())
	}
	data, err := r.ReadBytes(w * h)
	if err != nil {
		return nil, err
	}
	return events.MagicMapPayload{Width: w, Height: h, PX: dims[2], PY: dims[3], Data: data}, nil
}

// replyinfo <info>\n<data>
func decodeReplyInfo(_ *Parser, r *Reader) (interface{}, error) {
	rest := r.ReadRestBytes()
	header, data := rest, []byte(nil)
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		header, data = rest[:i], rest[i+1:]
	}
	info := string(header)
	if i := strings.IndexByte(info, ' '); i >= 0 {
		info = info[:i]
	}

	reply := events.ReplyInfoPayload{Info: info}
	switch info {
	case InfoImageInfo:
		img, err := parseImageInfo(decodeText(data))
		if err != nil {
			return nil, err
		}
		reply.ImageInfo = img
	case InfoSkillInfo:
		skills, err := parseSkillInfo(decodeText(data))
		if err != nil {
			return nil, err
		}
		reply.Skills = skills
	case InfoExpTable:
		table, err := parseExpTable(NewReader(data))
		if err != nil {
			return nil, err
		}
		reply.ExpTable = table
	case InfoKnowledgeInfo:
		types, err := parseKnowledgeInfo(decodeText(data))
		if err != nil {
			return nil, err
		}
		reply.KnowledgeTypes = types
	default:
		reply.Data = data
	}
	return reply, nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// image_info: <num images>\n<checksum>\n<faceset>\n...
func parseImageInfo(text string) (*events.ImageInfo, error) {
	lines := splitLines(text)
	if len(lines) < 2 {
		return nil, malformed("image_info has %d lines", len(lines))
	}
	num, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, malformed("image_info count %q", lines[0])
	}
	checksum, err := strconv.ParseUint(strings.TrimSpace(lines[1]), 10, 32)
	if err != nil {
		return nil, malformed("image_info checksum %q", lines[1])
	}
	return &events.ImageInfo{
		NumImages: num,
		Checksum:  uint32(checksum),
		Facesets:  lines[2:],
	}, nil
}

// skill_info: <id>:<name>[:<face>] per line
func parseSkillInfo(text string) ([]events.SkillEntry, error) {
	var skills []events.SkillEntry
	for _, line := range splitLines(text) {
		fields := strings.SplitN(line, ":", 3)
		if len(fields) < 2 {
			return nil, malformed("skill_info line %q", line)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, malformed("skill_info id %q", fields[0])
		}
		skill := events.SkillEntry{ID: id, Name: fields[1]}
		if len(fields) == 3 {
			face, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, malformed("skill_info face %q", fields[2])
			}
			skill.Face = face
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// exp_table: u16 levels, then levels-1 u64 thresholds starting at level 2.
// Index 0 of the result is level 1 and always zero.
func parseExpTable(r *Reader) ([]uint64, error) {
	levels, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	table := make([]uint64, levels)
	for i := 1; i < int(levels); i++ {
		exp, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		table[i] = exp
	}
	if err := r.Expect(); err != nil {
		return nil, err
	}
	return table, nil
}

// knowledge_info: <type>:<name>:<face>:<attempt> per line
func parseKnowledgeInfo(text string) ([]events.KnowledgeType, error) {
	var types []events.KnowledgeType
	for _, line := range splitLines(text) {
		fields := strings.Split(line, ":")
		if len(fields) != 4 {
			return nil, malformed("knowledge_info line %q", line)
		}
		face, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, malformed("knowledge_info face %q", fields[2])
		}
		types = append(types, events.KnowledgeType{
			Type:    fields[0],
			Name:    fields[1],
			Face:    face,
			Attempt: fields[3] == "1",
		})
	}
	return types, nil
}
