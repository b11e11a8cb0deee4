package led

import (
	"bytes"
	"image"
	stdcolor "image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/stripcast/internal/color"
)

func TestSymbolPacking(t *testing.T) {
	s := NewSymbol(true, 28, false, 64)
	assert.True(t, s.Level0())
	assert.False(t, s.Level1())
	assert.Equal(t, uint16(28), s.Ticks0())
	assert.Equal(t, uint16(64), s.Ticks1())
	assert.Equal(t, 28, s.HighTicks())
	assert.Equal(t, 92, s.TotalTicks())
	assert.False(t, s.IsEnd())
	assert.True(t, EndMarker.IsEnd())
	assert.Equal(t, "H28/L64", s.String())
}

func TestEncodeByteMSBFirst(t *testing.T) {
	p := &WS2812B
	dst := make([]Symbol, 8)
	require.Equal(t, 8, p.EncodeByte(dst, 0b1010_0001))
	want := []Symbol{p.Hi, p.Lo, p.Hi, p.Lo, p.Lo, p.Lo, p.Lo, p.Hi}
	assert.Equal(t, want, dst)
}

func TestWriteColorGRB(t *testing.T) {
	p := &WS2812B
	dst := make([]Symbol, 24)
	require.Equal(t, 24, p.WriteColor(dst, color.Rgb8{R: 0xFF, G: 0x00, B: 0x01}))

	for i := 0; i < 8; i++ {
		assert.Equal(t, p.Lo, dst[i], "green bit %d", i)
		assert.Equal(t, p.Hi, dst[8+i], "red bit %d", i)
	}
	for i := 16; i < 23; i++ {
		assert.Equal(t, p.Lo, dst[i])
	}
	assert.Equal(t, p.Hi, dst[23])
}

func TestBufferLayout(t *testing.T) {
	b := NewBuffer(&WS2812B, 300)
	syms := b.Symbols()
	require.Len(t, syms, 300*24+1)
	assert.Equal(t, EndMarker, syms[len(syms)-1])
	assert.Equal(t, WS2812B.Lo, syms[0])
	assert.Equal(t, 300, b.LEDs())

	for i := 0; i < 300; i++ {
		b.WriteColor(color.Rgb8{R: uint8(i)})
	}
	assert.Equal(t, 300*24, b.Pos())
	assert.Equal(t, EndMarker, syms[len(syms)-1])

	b.Flush()
	assert.Equal(t, 0, b.Pos())
	b.WriteColor(color.Rgb8{G: 0xFF})
	assert.Equal(t, WS2812B.Hi, b.Symbols()[0])
	assert.Equal(t, EndMarker, syms[len(syms)-1])
}

func TestBufferOverflowPanics(t *testing.T) {
	b := NewBuffer(&WS2812B, 1)
	b.WriteColor(color.Rgb8{})
	assert.Panics(t, func() { b.WriteColor(color.Rgb8{}) })

	b.Flush()
	assert.NotPanics(t, func() { b.WriteColor(color.Rgb8{}) })
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, p := range []*Protocol{&WS2812B, &SK6812} {
		frame := []color.Rgb8{{R: 1, G: 2, B: 3}, {R: 255, G: 128, B: 0}, {R: 0, G: 0, B: 0xAA}}
		b := NewBuffer(p, len(frame))
		b.WriteColors(frame)
		assert.Equal(t, frame, DecodeColors(p, b.Symbols()), p.Name)
	}

	rgb := WS2812B
	rgb.Order = RGB
	b := NewBuffer(&rgb, 1)
	b.WriteColor(color.Rgb8{R: 9, G: 8, B: 7})
	assert.Equal(t, []byte{9, 8, 7}, Decode(&rgb, b.Symbols()))
	assert.Equal(t, []color.Rgb8{{R: 9, G: 8, B: 7}}, DecodeColors(&rgb, b.Symbols()))
}

func TestWireTime(t *testing.T) {
	b := NewBuffer(&WS2812B, 10)
	// 240 bits of 92 ticks at 80 MHz
	assert.Equal(t, 276*time.Microsecond, WireTime(&WS2812B, b.Symbols()))
	assert.Equal(t, 1150*time.Nanosecond, WS2812B.BitPeriod())
}

func TestLookupProtocol(t *testing.T) {
	p, err := LookupProtocol("", "")
	require.NoError(t, err)
	assert.Equal(t, "ws2812b", p.Name)
	assert.Equal(t, GRB, p.Order)

	p, err = LookupProtocol("SK6812", "rgb")
	require.NoError(t, err)
	assert.Equal(t, "sk6812", p.Name)
	assert.Equal(t, "RGB", p.Order.String())

	_, err = LookupProtocol("apa102", "")
	assert.Error(t, err)
	_, err = LookupProtocol("ws2812b", "RRB")
	assert.Error(t, err)
}

func TestSPILUT(t *testing.T) {
	lut := newSPILUT()
	assert.Equal(t, [3]byte{0x92, 0x49, 0x24}, lut[0x00])
	assert.Equal(t, [3]byte{0xDB, 0x6D, 0xB6}, lut[0xFF])
	assert.Equal(t, [3]byte{0xD2, 0x49, 0x24}, lut[0x80])
}

func TestSPITransmit(t *testing.T) {
	var out bytes.Buffer
	d, err := NewSPI(spitest.NewRecordRaw(&out), &WS2812B, 0)
	require.NoError(t, err)
	assert.Equal(t, 98, d.latch)

	b := NewBuffer(&WS2812B, 1)
	b.WriteColor(color.Rgb8{R: 0xFF, G: 0x00, B: 0x80})
	require.NoError(t, d.Transmit(b.Symbols()))

	got := out.Bytes()
	require.Len(t, got, 9+98)
	assert.Equal(t, []byte{0x92, 0x49, 0x24, 0xDB, 0x6D, 0xB6, 0xD2, 0x49, 0x24}, got[:9])
	assert.Equal(t, make([]byte, 98), got[9:])

	require.NoError(t, d.Close())
	assert.Error(t, d.Transmit(b.Symbols()))
}

func TestNRZTransmit(t *testing.T) {
	var out bytes.Buffer
	d, err := NewNRZ(spitest.NewRecordRaw(&out), &WS2812B, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "nrzled{recordraw}", d.String())

	b := NewBuffer(&WS2812B, 2)
	b.WriteColors([]color.Rgb8{{R: 10}, {B: 20}})
	require.NoError(t, d.Transmit(b.Symbols()))
	assert.Equal(t, []byte{10, 0, 0, 0, 0, 20}, d.rgb)
	assert.GreaterOrEqual(t, out.Len(), 2*9)
}

type fakeDrawer struct {
	bounds image.Rectangle
	last   image.Image
	halted bool
}

func (f *fakeDrawer) String() string                 { return "fake" }
func (f *fakeDrawer) Halt() error                    { f.halted = true; return nil }
func (f *fakeDrawer) ColorModel() stdcolor.Model     { return stdcolor.NRGBAModel }
func (f *fakeDrawer) Bounds() image.Rectangle        { return f.bounds }
func (f *fakeDrawer) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	f.last = src
	return nil
}

func TestSimRecordsAndDraws(t *testing.T) {
	dr := &fakeDrawer{bounds: image.Rect(0, 0, 2, 1)}
	s := NewSim(&WS2812B, false, dr)

	b := NewBuffer(&WS2812B, 2)
	b.WriteColors([]color.Rgb8{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}})
	require.NoError(t, s.Transmit(b.Symbols()))

	assert.Equal(t, uint64(1), s.Frames())
	assert.Equal(t, []color.Rgb8{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}}, s.Last())
	require.NotNil(t, dr.last)
	r, g, bl, _ := dr.last.At(1, 0).RGBA()
	assert.Equal(t, []uint32{4, 5, 6}, []uint32{r >> 8, g >> 8, bl >> 8})

	require.NoError(t, s.Close())
	assert.True(t, dr.halted)
	assert.Error(t, s.Transmit(b.Symbols()))
}

func TestSimEmulatesWireTime(t *testing.T) {
	s := NewSim(&WS2812B, true, nil)
	b := NewBuffer(&WS2812B, 100)
	start := time.Now()
	require.NoError(t, s.Transmit(b.Symbols()))
	assert.GreaterOrEqual(t, time.Since(start), WireTime(&WS2812B, b.Symbols()))
}
