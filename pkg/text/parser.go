// Package text parses playlist references typed or pasted by users.
package text

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// MinPartsForPlaylistURI is the number of parts in spotify:playlist:<id>
	MinPartsForPlaylistURI = 3
)

var (
	// ErrNotAPlaylist is returned when a reference points at something other
	// than a playlist, or cannot be parsed at all.
	ErrNotAPlaylist = errors.New("not a playlist reference")

	playlistIDRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

	spotifyDomains = map[string]bool{
		"open.spotify.com": true,
		"spotify.com":      true,
		"play.spotify.com": true,
	}
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ExtractPlaylistID accepts a share link such as
// https://open.spotify.com/playlist/<id>?si=..., a spotify:playlist:<id> URI
// or a bare id, and returns the id.
func (p *Parser) ExtractPlaylistID(ref string) (string, error) {
	ref = p.normalizeText(ref)
	if ref == "" {
		return "", ErrNotAPlaylist
	}

	if strings.HasPrefix(ref, "spotify:") {
		return p.fromURI(ref)
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return p.fromURL(ref)
	}

	if playlistIDRegex.MatchString(ref) {
		return ref, nil
	}

	return "", ErrNotAPlaylist
}

func (p *Parser) normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.TrimSpace(text)
	return strings.TrimRight(text, ".,!?;")
}

func (p *Parser) fromURI(ref string) (string, error) {
	parts := strings.Split(ref, ":")
	if len(parts) < MinPartsForPlaylistURI {
		return "", ErrNotAPlaylist
	}
	// spotify:user:<owner>:playlist:<id> is still emitted by older clients
	for i := 1; i+1 < len(parts); i++ {
		if parts[i] == "playlist" && playlistIDRegex.MatchString(parts[i+1]) {
			return parts[i+1], nil
		}
	}
	return "", ErrNotAPlaylist
}

func (p *Parser) fromURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", ErrNotAPlaylist
	}

	if !spotifyDomains[strings.ToLower(u.Hostname())] {
		return "", ErrNotAPlaylist
	}

	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range pathParts {
		if part == "playlist" && i+1 < len(pathParts) {
			id := pathParts[i+1]
			if playlistIDRegex.MatchString(id) {
				return id, nil
			}
		}
	}

	return "", ErrNotAPlaylist
}
