package audio

import (
	"sort"
	"strconv"
	"strings"

	"ffkit/internal/language"
	"ffkit/internal/media/ffprobe"
)

// Selection names the audio stream a profile conversion encodes and the
// audio streams it leaves out.
type Selection struct {
	Primary      ffprobe.Stream
	PrimaryIndex int
	Dropped      []int
}

// Found reports whether any audio stream was available.
func (s Selection) Found() bool { return s.PrimaryIndex >= 0 }

// Label returns a short human-readable summary of the primary stream.
func (s Selection) Label() string {
	if !s.Found() {
		return ""
	}
	return summary(s.Primary)
}

// Select picks the primary audio stream. Streams in the preferred language
// win; when none match (or preferred is empty) every audio stream competes.
// Ties are broken by channel count, then lossless sources, then the default
// disposition, then report order.
func Select(streams []ffprobe.Stream, preferred string) Selection {
	candidates := collect(streams)
	if len(candidates) == 0 {
		return Selection{PrimaryIndex: -1}
	}

	pool := candidates
	if want := language.Normalize(preferred); want != "" {
		matching := make([]candidate, 0, len(candidates))
		for _, cand := range candidates {
			if cand.language == want {
				matching = append(matching, cand)
			}
		}
		if len(matching) > 0 {
			pool = matching
		}
	}

	best := pool[0]
	for _, cand := range pool[1:] {
		if cand.score() > best.score() {
			best = cand
		}
	}

	dropped := make([]int, 0, len(candidates)-1)
	for _, cand := range candidates {
		if cand.stream.Index != best.stream.Index {
			dropped = append(dropped, cand.stream.Index)
		}
	}
	sort.Ints(dropped)
	return Selection{Primary: best.stream, PrimaryIndex: best.stream.Index, Dropped: dropped}
}

type candidate struct {
	stream    ffprobe.Stream
	order     int
	language  string
	channels  int
	lossless  bool
	isDefault bool
}

func collect(streams []ffprobe.Stream) []candidate {
	out := make([]candidate, 0, len(streams))
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		out = append(out, candidate{
			stream:    stream,
			order:     len(out),
			language:  language.Normalize(stream.Language()),
			channels:  ChannelCount(stream),
			lossless:  Lossless(stream),
			isDefault: defaultDisposition(stream),
		})
	}
	return out
}

func (c candidate) score() float64 {
	score := 0.0
	switch {
	case c.channels >= 8:
		score += 1000
	case c.channels >= 6:
		score += 800
	case c.channels >= 4:
		score += 600
	case c.channels >= 2:
		score += 400
	default:
		score += 200
	}
	if c.lossless {
		score += 100
	} else {
		score += 50
	}
	if c.isDefault {
		score += 5
	}
	return score - float64(c.order)*0.1
}

func defaultDisposition(stream ffprobe.Stream) bool {
	disposition, ok := stream.Fields["disposition"].(map[string]any)
	if !ok {
		return false
	}
	flag, ok := disposition["default"].(float64)
	return ok && flag == 1
}

// ChannelCount returns the stream's channel count, derived from the layout
// name ("5.1(side)") when the channels field is missing.
func ChannelCount(stream ffprobe.Stream) int {
	if stream.Channels > 0 {
		return stream.Channels
	}
	layout := strings.ToLower(strings.TrimSpace(stream.ChannelLayout))
	switch layout {
	case "":
		return 0
	case "mono":
		return 1
	case "stereo":
		return 2
	}
	if !strings.Contains(layout, ".") {
		return 0
	}
	total := 0
	for _, part := range strings.Split(layout, ".") {
		part = strings.Trim(part, "abcdefghijklmnopqrstuvwxyz ()")
		if n, err := strconv.Atoi(part); err == nil {
			total += n
		}
	}
	return total
}

// Lossless reports whether the stream carries a lossless codec.
func Lossless(stream ffprobe.Stream) bool {
	switch strings.ToLower(stream.CodecName) {
	case "truehd", "flac", "mlp", "alac", "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_bluray", "pcm_s24be", "pcm_s16be":
		return true
	}
	long := strings.ToLower(stream.CodecLongName)
	return strings.Contains(long, "lossless") || strings.Contains(long, "master audio") || strings.Contains(long, "dts-hd")
}

func summary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 4)
	if lang := stream.Language(); lang != "" {
		parts = append(parts, strings.ToLower(lang))
	}
	codec := stream.CodecLongName
	if codec == "" {
		codec = stream.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if channels := ChannelCount(stream); channels > 0 {
		parts = append(parts, strconv.Itoa(channels)+"ch")
	}
	if title, ok := stream.Tag("title"); ok && strings.TrimSpace(title) != "" {
		parts = append(parts, strings.TrimSpace(title))
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}
