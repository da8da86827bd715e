package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ffkit/internal/language"
	"ffkit/internal/media"
	"ffkit/internal/media/ffprobe"
)

type streamView struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Codec    string `json:"codec"`
	Detail   string `json:"detail,omitempty"`
	Language string `json:"language,omitempty"`
}

type infoView struct {
	Path            string       `json:"path"`
	Duration        string       `json:"duration"`
	SizeBytes       int64        `json:"size_bytes"`
	BitRate         int64        `json:"bit_rate"`
	VideoCodec      string       `json:"video_codec,omitempty"`
	Width           int          `json:"width,omitempty"`
	Height          int          `json:"height,omitempty"`
	FrameRate       float64      `json:"frame_rate,omitempty"`
	VideoBitrate    int64        `json:"video_bitrate"`
	AudioBitrate    int64        `json:"audio_bitrate"`
	BitrateInferred bool         `json:"bitrate_inferred"`
	BitsPerPixel    float64      `json:"bits_per_pixel"`
	Streams         []streamView `json:"streams"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var raw bool
	var key string

	cmd := &cobra.Command{
		Use:   "info <file>...",
		Short: "Describe media files using ffprobe",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prober := ctx.prober()
			out := cmd.OutOrStdout()

			if raw {
				for _, path := range args {
					result, err := prober.Inspect(cmd.Context(), path)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(result.RawJSON()))
				}
				return nil
			}

			views := make([]infoView, 0, len(args))
			for i, path := range args {
				desc, err := media.Probe(cmd.Context(), prober, path)
				if err != nil {
					return err
				}
				if key != "" {
					renderKeyLookup(out, desc, key)
					continue
				}
				view := describe(desc)
				if jsonOutput {
					views = append(views, view)
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				renderInfo(out, view)
			}
			if jsonOutput && key == "" {
				if len(views) == 1 {
					return writeJSON(cmd, views[0])
				}
				return writeJSON(cmd, views)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the unmodified ffprobe report")
	cmd.Flags().StringVar(&key, "key", "", "List the streams carrying a probe field and its value (e.g. profile, BPS)")
	return cmd
}

func describe(desc *media.Descriptor) infoView {
	view := infoView{
		Path:            desc.Path(),
		Duration:        desc.DurationTimecode(),
		SizeBytes:       desc.Size(),
		BitRate:         desc.BitRate(),
		VideoCodec:      desc.VideoCodec(),
		Width:           desc.Width(),
		Height:          desc.Height(),
		FrameRate:       desc.FrameRate(),
		VideoBitrate:    desc.VideoBitrate(),
		AudioBitrate:    desc.AudioBitrate(),
		BitrateInferred: desc.BitrateInferred(),
		BitsPerPixel:    desc.BitsPerPixel(),
	}
	for _, stream := range desc.Streams() {
		view.Streams = append(view.Streams, streamView{
			Index:    stream.Index,
			Type:     stream.CodecType,
			Codec:    stream.CodecName,
			Detail:   streamDetail(desc, stream),
			Language: streamLanguage(stream),
		})
	}
	return view
}

func streamDetail(desc *media.Descriptor, stream ffprobe.Stream) string {
	parts := make([]string, 0, 3)
	switch stream.CodecType {
	case media.TypeVideo:
		if res, ok := desc.Resolution(stream.Index); ok && res.Width > 0 {
			parts = append(parts, fmt.Sprintf("%dx%d", res.Width, res.Height))
		}
		if fps, ok := desc.StreamFrameRate(stream.Index); ok && fps > 0 {
			parts = append(parts, strconv.FormatFloat(fps, 'f', 3, 64)+" fps")
		}
	case media.TypeAudio:
		if stream.ChannelLayout != "" {
			parts = append(parts, stream.ChannelLayout)
		} else if stream.Channels > 0 {
			parts = append(parts, fmt.Sprintf("%dch", stream.Channels))
		}
		if stream.SampleRate != "" {
			parts = append(parts, stream.SampleRate+" Hz")
		}
	}
	if bps, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil && bps > 0 {
		parts = append(parts, humanizeBitrate(bps))
	}
	return strings.Join(parts, ", ")
}

func streamLanguage(stream ffprobe.Stream) string {
	code := language.ExtractFromTags(stream.Tags)
	if code == "" {
		return ""
	}
	return language.DisplayName(code)
}

func renderInfo(out io.Writer, view infoView) {
	summary := [][]string{
		{"Path", view.Path},
		{"Duration", view.Duration},
		{"Size", humanize.IBytes(uint64(max(view.SizeBytes, 0)))},
		{"Bitrate", humanizeBitrate(view.BitRate)},
	}
	if view.VideoCodec != "" {
		video := humanizeBitrate(view.VideoBitrate)
		if view.BitrateInferred {
			video += " (estimated)"
		}
		summary = append(summary,
			[]string{"Video", fmt.Sprintf("%s %dx%d @ %.3f fps", view.VideoCodec, view.Width, view.Height, view.FrameRate)},
			[]string{"Video bitrate", video},
		)
		if view.BitsPerPixel >= 0 {
			summary = append(summary, []string{"Bits/pixel", strconv.FormatFloat(view.BitsPerPixel, 'f', 4, 64)})
		}
	}
	summary = append(summary, []string{"Audio bitrate", humanizeBitrate(view.AudioBitrate)})
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, summary, nil))

	rows := make([][]string, 0, len(view.Streams))
	for _, s := range view.Streams {
		rows = append(rows, []string{strconv.Itoa(s.Index), s.Type, s.Codec, s.Detail, s.Language})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Type", "Codec", "Detail", "Language"},
		rows,
		[]columnAlignment{alignRight},
	))
}

func renderKeyLookup(out io.Writer, desc *media.Descriptor, key string) {
	indices := desc.FindStreamsByKey(key)
	if len(indices) == 0 {
		fmt.Fprintf(out, "%s: no stream carries %q\n", desc.Path(), key)
		return
	}
	rows := make([][]string, 0, len(indices))
	for _, index := range indices {
		value, _ := desc.Value(index, key)
		kind, _ := desc.StreamType(index)
		rows = append(rows, []string{strconv.Itoa(index), kind, fmt.Sprint(value)})
	}
	fmt.Fprintln(out, tableSpec{
		Title:   desc.Path(),
		Headers: []string{"#", "Type", key},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight},
	}.render())
}

func humanizeBitrate(bps int64) string {
	if bps <= 0 {
		return "unknown"
	}
	value, prefix := humanize.ComputeSI(float64(bps))
	return humanize.FtoaWithDigits(value, 1) + " " + prefix + "b/s"
}
