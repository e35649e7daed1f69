// Package metadata reads audio container tags and properties and normalizes
// them into a canonical record for the library index. Extraction is a pure
// read: source files are never modified.
package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.senan.xyz/taglib"
)

// supportedExtensions is the ingestion allowlist. Everything else in the
// library root is ignored by the walker.
var supportedExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
}

// trackPrefixPattern matches filenames like "07 - Name" or "07. Name".
var trackPrefixPattern = regexp.MustCompile(`^\s*(\d{1,3})[\s._-]+(.+)$`)

var firstIntegerPattern = regexp.MustCompile(`\d+`)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// IsSupported reports whether the file extension is on the ingestion
// allowlist. Comparison is case-insensitive.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MIMEType returns the content type for a supported audio file, or
// "application/octet-stream" for anything unrecognized.
func MIMEType(path string) string {
	if mime, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// TrackMetadata is the canonical per-file extraction result. Zero values
// mean "unknown": a zero track or disc number sorts after known values, a
// zero duration means the container's length could not be determined.
type TrackMetadata struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	TrackNumber int
	DiscNumber  int
	Year        int
	Duration    float64 // seconds
	Bitrate     int     // kbps
	SampleRate  int
	Channels    int
	Format      string
	MIMEType    string
	HasArtwork  bool
}

// ExtractionError is a recoverable per-file failure. Callers count these and
// continue; they never abort a scan.
type ExtractionError struct {
	Path   string
	Reason string
	cause  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.cause }

// Extractor reads tag metadata for a single audio file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*TrackMetadata, error)
}

// TagLibExtractor extracts metadata through the embedded TagLib runtime. It
// handles MP3, FLAC, MPEG-4, Ogg/Vorbis and Ogg/Opus containers. Safe for
// concurrent use.
type TagLibExtractor struct{}

func NewExtractor() *TagLibExtractor {
	return &TagLibExtractor{}
}

// Extract reads tags and audio properties for path. Malformed or unreadable
// files produce an *ExtractionError, never a panic. Missing tag fields fall
// back: title to the filename stem (with a leading "NN - " track prefix
// parsed off), album artist to artist, track/disc numbers to zero. A failure
// to read audio properties leaves duration at zero without failing the file.
func (x *TagLibExtractor) Extract(ctx context.Context, path string) (*TrackMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	md := &TrackMetadata{
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		MIMEType: MIMEType(path),
	}

	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Reason: "unreadable tags", cause: err}
	}
	applyTags(md, tags)

	if md.Title == "" {
		num, title := parseFilenameTitle(filepath.Base(path))
		md.Title = title
		if md.TrackNumber == 0 {
			md.TrackNumber = num
		}
	}
	if md.AlbumArtist == "" {
		md.AlbumArtist = md.Artist
	}

	// Properties failures are tolerated: the track is still indexable, it
	// just has no duration.
	if props, propErr := taglib.ReadProperties(path); propErr == nil {
		md.Duration = props.Length.Seconds()
		md.Bitrate = int(props.Bitrate)
		md.SampleRate = int(props.SampleRate)
		md.Channels = int(props.Channels)
		md.HasArtwork = len(props.Images) > 0
	}

	return md, nil
}

func applyTags(md *TrackMetadata, tags map[string][]string) {
	md.Title = firstTagValue(tags, taglib.Title)
	md.Artist = firstTagValue(tags, taglib.Artist)
	md.AlbumArtist = firstTagValue(tags, taglib.AlbumArtist)
	md.Album = firstTagValue(tags, taglib.Album)
	md.Genre = firstTagValue(tags, taglib.Genre)
	md.TrackNumber = parsePositionTag(firstTagValue(tags, taglib.TrackNumber))
	md.DiscNumber = parsePositionTag(firstTagValue(tags, taglib.DiscNumber))
	md.Year = parseYearTag(firstTagValue(tags, taglib.Date, "YEAR", "ORIGINALDATE"))
}

func firstTagValue(tags map[string][]string, keys ...string) string {
	for _, key := range keys {
		for _, value := range tags[key] {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// parsePositionTag handles plain numbers and "n/m" position-of-total values.
// Anything unparseable or non-positive is "unknown", i.e. zero.
func parsePositionTag(value string) int {
	match := firstIntegerPattern.FindString(value)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseYearTag(value string) int {
	if match := yearPattern.FindString(value); match != "" {
		if year, err := strconv.Atoi(match); err == nil {
			return year
		}
	}
	n := parsePositionTag(value)
	if n >= 1000 && n <= 3000 {
		return n
	}
	return 0
}

// parseFilenameTitle derives a title (and possibly a track number) from a
// filename when the container has no title tag.
func parseFilenameTitle(fileName string) (int, string) {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	match := trackPrefixPattern.FindStringSubmatch(stem)
	if len(match) != 3 {
		return 0, strings.TrimSpace(stem)
	}
	num, err := strconv.Atoi(match[1])
	if err != nil || num <= 0 {
		return 0, strings.TrimSpace(stem)
	}
	return num, strings.TrimSpace(match[2])
}
