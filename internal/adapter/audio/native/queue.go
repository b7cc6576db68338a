package native

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// Config holds the sound device settings.
type Config struct {
	SampleRate int           // device sample rate in Hz
	Buffer     time.Duration // speaker buffer length
	Quality    int           // resampling quality, 1 to 64
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Buffer:     100 * time.Millisecond,
		Quality:    4,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	if c.Buffer <= 0 {
		c.Buffer = def.Buffer
	}
	if c.Quality <= 0 {
		c.Quality = def.Quality
	}
	return c
}

type queued struct {
	src    *Source
	stream beep.Streamer
}

// queue plays sources back to back and emits silence once drained, so it
// can stay attached to the speaker for the life of the output.
// Callers must hold the speaker lock.
type queue struct {
	items []queued
}

func (q *queue) push(src *Source, target beep.SampleRate, quality int) {
	var stream beep.Streamer = src.streamer
	if src.format.SampleRate != target {
		stream = beep.Resample(quality, src.format.SampleRate, target, src.streamer)
	}
	q.items = append(q.items, queued{src: src, stream: stream})
}

// drain removes every source without closing it.
func (q *queue) drain() []*Source {
	srcs := make([]*Source, len(q.items))
	for i, it := range q.items {
		srcs[i] = it.src
	}
	q.items = nil
	return srcs
}

func (q *queue) empty() bool {
	return len(q.items) == 0
}

func (q *queue) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		if len(q.items) == 0 {
			clear(samples[filled:])
			break
		}
		head := q.items[0]
		got, more := head.stream.Stream(samples[filled:])
		filled += got
		if !more {
			_ = head.src.Close()
			q.items = q.items[1:]
		}
	}
	return len(samples), true
}

func (q *queue) Err() error {
	return nil
}

// gain maps a linear volume in [0, 1] to a base-2 level for effects.Volume.
func gain(volume float64) (level float64, silent bool) {
	if volume <= 0 {
		return 0, true
	}
	return math.Log2(volume), false
}
