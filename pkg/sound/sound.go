// Package sound plays short wav cues on the robot's speaker.
package sound

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
)

const queueTimeout = 10 * time.Millisecond

// Player owns the speaker.  Only one cue plays at a time; a new cue cuts off
// the previous one.
type Player struct {
	log   *zap.SugaredLogger
	queue chan string
}

// Start opens the speaker in the background and returns a player ready to
// accept cues.  If the speaker can't be opened, cues are logged and dropped.
func Start(log *zap.SugaredLogger) *Player {
	p := &Player{
		log:   log,
		queue: make(chan string),
	}
	go p.loop()
	return p
}

// Play queues a cue without blocking the caller for more than a few ms.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	defer func() {
		recover() // Don't die if the player is already closed.
	}()
	select {
	case p.queue <- path:
	case <-time.After(queueTimeout):
		p.log.Warnw("timed out queueing sound", "path", path)
	}
}

func (p *Player) Close() {
	close(p.queue)
}

func (p *Player) drain(reason string) {
	for s := range p.queue {
		p.log.Debugw("unable to play sound", "path", s, "reason", reason)
	}
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("sound player crashed", "panic", r)
			p.drain("player crashed")
		}
	}()
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		p.log.Warnw("failed to open speaker", "error", err)
		p.drain("no speaker")
		return
	}

	var ctrl *beep.Ctrl
	var current beep.StreamSeekCloser
	for path := range p.queue {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if current != nil {
			_ = current.Close()
			current = nil
		}

		f, err := os.Open(path)
		if err != nil {
			p.log.Warnw("failed to open sound", "path", path, "error", err)
			continue
		}
		s, _, err := wav.Decode(f)
		if err != nil {
			_ = f.Close()
			p.log.Warnw("failed to decode sound", "path", path, "error", err)
			continue
		}
		current = s
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
	if current != nil {
		_ = current.Close()
	}
}
