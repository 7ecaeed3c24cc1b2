package discord

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

const (
	oggPageHeaderSize = 27
	oggMaxSegment     = 255
)

var oggCapturePattern = []byte("OggS")

// oggOpusProvider feeds Opus packets demuxed from an Ogg stream to a voice
// connection. It implements voice.OpusFrameProvider.
type oggOpusProvider struct {
	reader  *bufio.Reader
	header  [oggPageHeaderSize]byte
	segs    [oggMaxSegment]byte
	partial bytes.Buffer
	packets [][]byte

	onFinish func()
	once     sync.Once
}

func newOggOpusProvider(r io.Reader, onFinish func()) *oggOpusProvider {
	return &oggOpusProvider{
		reader:   bufio.NewReaderSize(r, 16*1024),
		onFinish: onFinish,
	}
}

// ProvideOpusFrame returns the next audio packet. Any read error, io.EOF
// included, ends the stream and fires onFinish once.
func (p *oggOpusProvider) ProvideOpusFrame() ([]byte, error) {
	for len(p.packets) == 0 {
		if err := p.readPage(); err != nil {
			p.finish()
			return nil, err
		}
	}

	frame := p.packets[0]
	p.packets = p.packets[1:]
	return frame, nil
}

// Close implements voice.OpusFrameProvider.
func (p *oggOpusProvider) Close() {
	p.finish()
}

func (p *oggOpusProvider) finish() {
	p.once.Do(func() {
		if p.onFinish != nil {
			p.onFinish()
		}
	})
}

// readPage reads one Ogg page and queues the complete packets it ends.
// Bytes before the next capture pattern are skipped.
func (p *oggOpusProvider) readPage() error {
	for {
		sig, err := p.reader.Peek(len(oggCapturePattern))
		if err != nil {
			return err
		}
		if bytes.Equal(sig, oggCapturePattern) {
			break
		}
		if _, err := p.reader.Discard(1); err != nil {
			return err
		}
	}

	if _, err := io.ReadFull(p.reader, p.header[:]); err != nil {
		return err
	}
	table := p.segs[:p.header[oggPageHeaderSize-1]]
	if _, err := io.ReadFull(p.reader, table); err != nil {
		return err
	}

	for _, size := range table {
		if _, err := io.CopyN(&p.partial, p.reader, int64(size)); err != nil {
			return err
		}
		// A lacing value of 255 continues the packet on the next segment.
		if size == oggMaxSegment {
			continue
		}

		packet := bytes.Clone(p.partial.Bytes())
		p.partial.Reset()
		if isOpusHeader(packet) {
			continue
		}
		p.packets = append(p.packets, packet)
	}
	return nil
}

func isOpusHeader(packet []byte) bool {
	return bytes.HasPrefix(packet, []byte("OpusHead")) || bytes.HasPrefix(packet, []byte("OpusTags"))
}
