// ABOUTME: Playback instance state and its decode-ahead worker
// ABOUTME: One goroutine per instance decodes, converts, resamples, and fills a bounded queue
package engine

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cartwall/cartwall-go/pkg/audio"
	"github.com/cartwall/cartwall-go/pkg/audio/decode"
	"github.com/cartwall/cartwall-go/pkg/audio/resample"
)

// block is one period's worth of device-format samples headed for the
// mix. endPos is the native frame position once the block has played.
// final marks the last block of a non-looping stream.
type block struct {
	gen    uint64
	data   []float32
	endPos int64
	final  bool
}

// seekReq carries a seek target plus the generation that retires all
// blocks produced before it.
type seekReq struct {
	gen   uint64
	frame int64
}

// instance is one triggered occurrence of a source.
//
// mu serializes commands. The fields the mix path reads are atomics,
// so a pull never takes the lock. cur, curOff, and prevGain belong to
// the mix path alone.
type instance struct {
	id      uint64
	name    string
	source  Source
	created time.Time

	mu      sync.Mutex
	state   atomic.Int32
	gen     atomic.Uint64
	pos     atomic.Int64
	length  atomic.Int64
	rate    atomic.Int64
	volume  atomic.Uint64 // float64 bits
	muted   atomic.Bool
	loop    atomic.Bool
	failure atomic.Pointer[DecodeError]

	frames chan block
	seekCh chan seekReq
	cancel context.CancelFunc

	cur      block
	curOff   int
	prevGain float32
}

func (in *instance) getState() State {
	return State(in.state.Load())
}

func (in *instance) setVolume(v float64) {
	in.volume.Store(math.Float64bits(v))
}

func (in *instance) getVolume() float64 {
	return math.Float64frombits(in.volume.Load())
}

// effectiveGain is the gain the mix applies this pull: the configured
// volume, or zero while muted.
func (in *instance) effectiveGain() float32 {
	if in.muted.Load() {
		return 0
	}
	return float32(in.getVolume())
}

// fail marks the instance Failed unless it is already terminal.
func (in *instance) fail(err error) {
	in.failure.Store(newDecodeError(in.name, err))
	transition(in, StateFailed, func(s State) bool { return !s.Terminal() })
}

// transition CASes the state to `to` when the current state passes ok.
func transition(in *instance, to State, ok func(State) bool) bool {
	for {
		s := State(in.state.Load())
		if !ok(s) {
			return false
		}
		if in.state.CompareAndSwap(int32(s), int32(to)) {
			return true
		}
	}
}

// popBlock takes the next current-generation block off the queue
// without blocking. Blocks from before the latest seek are discarded.
func (in *instance) popBlock(gen uint64) (block, bool) {
	for {
		select {
		case blk := <-in.frames:
			if blk.gen != gen {
				continue
			}
			return blk, true
		default:
			return block{}, false
		}
	}
}

// run is the instance's decode worker: open the decoder, keep the
// frame queue filled ahead of the mix, service seeks, and stay alive
// until reaping cancels the context. A full queue blocks the send
// below, which is the decode-ahead back-pressure.
func (in *instance) run(ctx context.Context, format audio.Format) {
	dec, err := in.source.OpenDecoder()
	if err != nil {
		in.fail(err)
		return
	}
	defer dec.Close()

	in.rate.Store(int64(dec.SampleRate()))
	in.length.Store(dec.Length())

	p := newPipeline(dec, in, format)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-in.seekCh:
			if err := p.seek(req); err != nil {
				in.fail(err)
				return
			}
			continue
		default:
		}

		blk, err := p.next()
		if err != nil {
			in.fail(err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case req := <-in.seekCh:
			// The seek supersedes the block just built; drop it.
			if err := p.seek(req); err != nil {
				in.fail(err)
				return
			}
			continue
		case in.frames <- blk:
		}

		if blk.final {
			// Nothing left to decode. Hold for a late seek until the
			// reaper cancels us.
			select {
			case <-ctx.Done():
				return
			case req := <-in.seekCh:
				if err := p.seek(req); err != nil {
					in.fail(err)
					return
				}
			}
		}
	}
}

// readChunkFrames is how many native frames each decoder read requests.
const readChunkFrames = 2048

// pipeline converts one decoder's native stream into device-format
// blocks of one period each.
type pipeline struct {
	dec    decode.Decoder
	in     *instance
	format audio.Format

	srcRate     int
	srcChannels int
	ratio       float64 // native frames per device frame
	res         *resample.Resampler

	gen       uint64
	segStart  int64 // native frame position at segment start
	devFrames int64 // device frames emitted since segment start

	readBuf []float32
	chanBuf []float32
	resBuf  []float32
	accum   []float32
}

func newPipeline(dec decode.Decoder, in *instance, format audio.Format) *pipeline {
	p := &pipeline{
		dec:         dec,
		in:          in,
		format:      format,
		srcRate:     dec.SampleRate(),
		srcChannels: dec.Channels(),
		ratio:       float64(dec.SampleRate()) / float64(format.SampleRate),
	}
	if p.srcRate != format.SampleRate {
		p.res = resample.New(p.srcRate, format.SampleRate, format.Channels)
	}

	p.readBuf = make([]float32, readChunkFrames*p.srcChannels)
	p.chanBuf = make([]float32, readChunkFrames*format.Channels)
	if p.res != nil {
		p.resBuf = make([]float32, p.res.OutputMax(len(p.chanBuf)))
	}
	p.accum = make([]float32, 0, format.PeriodSamples()*2+len(p.chanBuf)*2)
	return p
}

// next produces the next block, reading ahead as needed. At end of
// stream it wraps (loop on) or emits a final block (loop off).
func (p *pipeline) next() (block, error) {
	period := p.format.PeriodSamples()

	for len(p.accum) < period {
		n, err := p.dec.ReadSamples(p.readBuf)
		if n > 0 {
			p.push(p.readBuf[:n])
			continue
		}
		if err == io.EOF {
			if p.in.loop.Load() {
				if serr := p.dec.Seek(0); serr != nil {
					return block{}, serr
				}
				p.resetSegment(0)
				continue
			}
			return p.emit(len(p.accum), true), nil
		}
		if err != nil {
			return block{}, err
		}
	}

	return p.emit(period, false), nil
}

// push runs native samples through layout conversion and resampling
// into the accumulator.
func (p *pipeline) push(samples []float32) {
	out := convertLayout(samples, p.srcChannels, p.format.Channels, p.chanBuf)
	if p.res != nil {
		if need := p.res.OutputMax(len(out)); cap(p.resBuf) < need {
			p.resBuf = make([]float32, need)
		}
		m := p.res.Process(out, p.resBuf[:cap(p.resBuf)])
		out = p.resBuf[:m]
	}
	p.accum = append(p.accum, out...)
}

// emit cuts size samples off the accumulator into a block.
func (p *pipeline) emit(size int, final bool) block {
	data := make([]float32, size)
	copy(data, p.accum[:size])
	n := copy(p.accum, p.accum[size:])
	p.accum = p.accum[:n]

	p.devFrames += int64(size / p.format.Channels)
	endPos := p.segStart + int64(float64(p.devFrames)*p.ratio+0.5)
	if l := p.in.length.Load(); l >= 0 && (final || endPos > l) {
		endPos = l
	}

	return block{gen: p.gen, data: data, endPos: endPos, final: final}
}

// seek repositions the decoder and retires everything produced so far.
func (p *pipeline) seek(req seekReq) error {
	if err := p.dec.Seek(req.frame); err != nil {
		return err
	}
	p.gen = req.gen
	p.accum = p.accum[:0]
	p.resetSegment(req.frame)
	return nil
}

func (p *pipeline) resetSegment(startFrame int64) {
	p.segStart = startFrame
	p.devFrames = 0
	if p.res != nil {
		p.res.Reset()
	}
}

// convertLayout maps src's channel layout onto dstCh channels. Mono
// duplicates, stereo averages down; a matching layout passes through.
func convertLayout(src []float32, srcCh, dstCh int, scratch []float32) []float32 {
	if srcCh == dstCh {
		return src
	}
	frames := len(src) / srcCh
	out := scratch[:frames*dstCh]
	switch {
	case srcCh == 1 && dstCh == 2:
		for f := 0; f < frames; f++ {
			v := src[f]
			out[f*2] = v
			out[f*2+1] = v
		}
	case srcCh == 2 && dstCh == 1:
		for f := 0; f < frames; f++ {
			out[f] = (src[f*2] + src[f*2+1]) / 2
		}
	}
	return out
}
