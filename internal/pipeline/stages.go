package pipeline

import (
	"context"
	"fmt"

	"github.com/lyricwave/api/internal/audio"
	"github.com/lyricwave/api/internal/model"
)

// Stages returns the ordered stage table. The sequence is fixed:
// melody, voice, combine, cover, index.
func Stages() []Definition {
	return []Definition{
		{
			Name:        "generate_melody",
			Produces:    ArtifactMelody,
			KeySuffix:   "_melody.wav",
			ContentType: "audio/wav",
			Status:      model.SongStatusMelodyGenerated,
			Transform:   melodyTransform,
		},
		{
			Name:        "generate_voice",
			Produces:    ArtifactVoice,
			KeySuffix:   "_voice.wav",
			ContentType: "audio/wav",
			Status:      model.SongStatusVoiceGenerated,
			Transform:   voiceTransform,
		},
		{
			Name:        "combine_audio",
			Requires:    []Artifact{ArtifactMelody, ArtifactVoice},
			Produces:    ArtifactSong,
			KeySuffix:   "_song.wav",
			ContentType: "audio/wav",
			Status:      model.SongStatusSongCombined,
			Transform:   combineTransform,
		},
		{
			Name:        "generate_cover",
			Produces:    ArtifactCover,
			KeySuffix:   "_cover.jpg",
			ContentType: "image/jpeg",
			Status:      model.SongStatusCoverGenerated,
			Transform:   coverTransform,
		},
		{
			Name:      "index_song",
			Produces:  ArtifactNone,
			Status:    model.SongStatusIndexed,
			Transform: indexTransform,
		},
	}
}

func melodyTransform(ctx context.Context, d *Deps, song *model.Song, _ map[Artifact][]byte) ([]byte, error) {
	// The style name is a prompt prefix; a style deleted since creation
	// is not a reason to fail the stage.
	styleName := ""
	if song.MusicStyleID != "" && d.Styles != nil {
		if style, err := d.Styles.FindByID(ctx, song.MusicStyleID); err == nil {
			styleName = style.Name
		}
	}

	data, err := d.Melody.GenerateMelody(ctx, song.Text, styleName)
	if err != nil {
		return nil, fmt.Errorf("melody generation failed: %w", err)
	}
	return data, nil
}

func voiceTransform(ctx context.Context, d *Deps, song *model.Song, _ map[Artifact][]byte) ([]byte, error) {
	data, err := d.Voice.GenerateVoice(ctx, song.Text)
	if err != nil {
		return nil, fmt.Errorf("voice generation failed: %w", err)
	}
	return data, nil
}

func combineTransform(_ context.Context, _ *Deps, _ *model.Song, inputs map[Artifact][]byte) ([]byte, error) {
	melody, err := audio.DecodeWAV(inputs[ArtifactMelody])
	if err != nil {
		return nil, fmt.Errorf("failed to decode melody track: %w", err)
	}
	voice, err := audio.DecodeWAV(inputs[ArtifactVoice])
	if err != nil {
		return nil, fmt.Errorf("failed to decode voice track: %w", err)
	}

	combined := audio.MixSongTracks(melody, voice)
	return audio.EncodeWAV(combined), nil
}

func coverTransform(ctx context.Context, d *Deps, song *model.Song, _ map[Artifact][]byte) ([]byte, error) {
	data, err := d.Cover.GenerateCover(ctx, song.Text)
	if err != nil {
		return nil, fmt.Errorf("cover generation failed: %w", err)
	}
	return data, nil
}

func indexTransform(ctx context.Context, d *Deps, song *model.Song, _ map[Artifact][]byte) ([]byte, error) {
	if err := d.Search.Index(ctx, song.ID, song.Text); err != nil {
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	return nil, nil
}
