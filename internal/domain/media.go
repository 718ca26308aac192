package domain

import "errors"

var ErrUnknownKind = errors.New("unknown media kind")

// Kind is a published media kind. A participant owns at most one
// stream per kind.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Kinds returns all kinds in replay order: audio before video.
func Kinds() []Kind {
	return []Kind{KindAudio, KindVideo}
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAudio:
		return KindAudio, nil
	case KindVideo:
		return KindVideo, nil
	default:
		return "", ErrUnknownKind
	}
}
