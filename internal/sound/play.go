package sound

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	beepmp3 "github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	beepwav "github.com/faiface/beep/wav"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

var speakerOnce sync.Once

// Play decodes an audio blob by media type and plays it to completion on
// the default output device. Used by the push-to-talk client.
func Play(data []byte, mediaType string) error {
	if len(data) == 0 {
		return nil
	}
	streamer, sr, err := newStreamer(data, mediaType)
	if err != nil {
		return err
	}
	if closer, ok := streamer.(io.Closer); ok {
		defer closer.Close()
	}
	return play(streamer, sr)
}

func newStreamer(data []byte, mediaType string) (beep.Streamer, beep.SampleRate, error) {
	switch mediaType {
	case "audio/mpeg":
		streamer, format, err := beepmp3.Decode(nopSeekCloser{bytes.NewReader(data)})
		if err != nil {
			return nil, 0, fmt.Errorf("decode mp3: %w", err)
		}
		return streamer, format.SampleRate, nil
	case "audio/wav":
		streamer, format, err := beepwav.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("decode wav: %w", err)
		}
		return streamer, format.SampleRate, nil
	case "audio/ogg":
		return oggStreamer(data)
	default:
		return nil, 0, fmt.Errorf("cannot play media type %q", mediaType)
	}
}

// oggStreamer handles both codecs the daemon may put in an ogg container:
// vorbis first, opus when the vorbis parse rejects the stream.
func oggStreamer(data []byte) (beep.Streamer, beep.SampleRate, error) {
	if pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data)); err == nil {
		return &pcmStreamer{pcm: pcm, channels: format.Channels}, beep.SampleRate(format.SampleRate), nil
	}

	dec, err := popus.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("ogg stream is neither vorbis nor opus: %w", err)
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}
	var pcm []float32
	buf := make([]int16, 24_000*channels)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			for _, s := range buf[:n*channels] {
				pcm = append(pcm, float32(s)/32768.0)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decode opus: %w", err)
		}
	}
	// opus always decodes at 48 kHz
	return &pcmStreamer{pcm: pcm, channels: channels}, 48000, nil
}

func play(streamer beep.Streamer, sr beep.SampleRate) error {
	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if initErr != nil {
		return fmt.Errorf("init speaker: %w", initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}

// pcmStreamer plays interleaved float32 PCM, duplicating mono to both
// output channels.
type pcmStreamer struct {
	pcm      []float32
	channels int
	pos      int
}

func (v *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if v.pos >= len(v.pcm) {
		return 0, false
	}
	n := 0
	for ; n < len(samples) && v.pos < len(v.pcm); n++ {
		if v.channels >= 2 && v.pos+1 < len(v.pcm) {
			samples[n][0] = float64(v.pcm[v.pos])
			samples[n][1] = float64(v.pcm[v.pos+1])
			v.pos += v.channels
		} else {
			s := float64(v.pcm[v.pos])
			samples[n][0], samples[n][1] = s, s
			v.pos++
		}
	}
	return n, true
}

func (v *pcmStreamer) Err() error { return nil }

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

var _ io.ReadCloser = nopSeekCloser{}
