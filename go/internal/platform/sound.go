package platform

import (
	"context"
	"path/filepath"
)

// Sound files shipped with the server.
const (
	SoundWorkStart  = "kuru-ring-herta-made-with-Voicemod.mp3"
	SoundBreakStart = "kuru-kuru-herta-made-with-Voicemod.mp3"
	SoundFinished   = "aqua-crying-green-screen-with-crying-sounds-made-with-Voicemod.mp3"
)

// SoundPlayer plays mp3 files from a directory with mpg123.
type SoundPlayer struct {
	dir    string
	runner Runner
}

func NewSoundPlayer(dir string, runner Runner) *SoundPlayer {
	return &SoundPlayer{dir: dir, runner: runnerOrDefault(runner)}
}

// Play blocks until mpg123 exits, so callers run it off the hot path.
func (p *SoundPlayer) Play(ctx context.Context, file string) error {
	return p.runner.Run(ctx, "mpg123", "-q", filepath.Join(p.dir, filepath.Base(file)))
}
