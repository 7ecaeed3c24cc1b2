package discord

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oggPage builds a page carrying packets; each packet is laced in 255 byte
// segments.
func oggPage(packets ...[]byte) []byte {
	var table, body []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			table = append(table, 255)
			n -= 255
		}
		table = append(table, byte(n))
		body = append(body, p...)
	}

	header := make([]byte, oggPageHeaderSize)
	copy(header, "OggS")
	header[oggPageHeaderSize-1] = byte(len(table))

	page := append(header, table...)
	return append(page, body...)
}

func readAll(t *testing.T, p *oggOpusProvider) [][]byte {
	t.Helper()
	var frames [][]byte
	for {
		frame, err := p.ProvideOpusFrame()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return frames
		}
		frames = append(frames, frame)
	}
}

func TestOggOpusProvider(t *testing.T) {
	long := bytes.Repeat([]byte{7}, 600)

	var stream bytes.Buffer
	stream.Write(oggPage([]byte("OpusHead\x01\x02")))
	stream.Write(oggPage([]byte("OpusTags\x00\x00")))
	stream.WriteString("garbage")
	stream.Write(oggPage([]byte{1, 2, 3}, []byte{4, 5}))
	stream.Write(oggPage(long))

	finished := 0
	p := newOggOpusProvider(&stream, func() { finished++ })

	frames := readAll(t, p)
	require.Len(t, frames, 3)
	assert.Equal(t, []byte{1, 2, 3}, frames[0])
	assert.Equal(t, []byte{4, 5}, frames[1])
	assert.Equal(t, long, frames[2])
	assert.Equal(t, 1, finished)

	// Further calls keep failing without firing again.
	_, err := p.ProvideOpusFrame()
	assert.Error(t, err)
	p.Close()
	assert.Equal(t, 1, finished)
}

func TestOggOpusProvider_TruncatedPage(t *testing.T) {
	page := oggPage([]byte{1, 2, 3, 4})
	finished := false
	p := newOggOpusProvider(bytes.NewReader(page[:len(page)-2]), func() { finished = true })

	_, err := p.ProvideOpusFrame()
	assert.Error(t, err)
	assert.True(t, finished)
}

func TestOggOpusProvider_CloseFinishes(t *testing.T) {
	finished := false
	p := newOggOpusProvider(bytes.NewReader(nil), func() { finished = true })
	p.Close()
	assert.True(t, finished)
}
