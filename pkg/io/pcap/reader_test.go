package pcap

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gio "github.com/hed1ad/goguardml/pkg/io"
)

var (
	_ gio.Reader           = (*Reader)(nil)
	_ gio.FeatureExtractor = (*FeatureExtractor)(nil)
)

func tcpPacket(t *testing.T, payload string) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	tcp := &layers.TCP{
		SrcPort: 40000,
		DstPort: 443,
		SYN:     true,
		ACK:     true,
		Window:  1024,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func writeCapture(t *testing.T, packets ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	start := time.Unix(1700000000, 0)
	for i, data := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * 500 * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func TestFileReaderRead(t *testing.T) {
	path := writeCapture(t, tcpPacket(t, "hello"), tcpPacket(t, "hi"))

	r, err := NewFileReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.Live())
	assert.Len(t, r.FeatureNames(), 8)

	ds, err := r.Read()
	require.NoError(t, err)
	require.Equal(t, 2, ds.NumRows())
	require.Equal(t, 8, ds.NumColumns())

	samples, err := ds.Float64s()
	require.NoError(t, err)

	first := samples[0]
	assert.Equal(t, float64(14+20+20+5), first[0])
	assert.Zero(t, first[1])
	assert.Equal(t, 6.0, first[2])
	assert.Equal(t, 40000.0, first[3])
	assert.Equal(t, 443.0, first[4])
	assert.Equal(t, 3.0, first[5], "SYN+ACK")
	assert.Equal(t, 64.0, first[6])
	assert.Equal(t, 5.0, first[7])

	assert.InDelta(t, 0.5, samples[1][1], 1e-9)
	assert.Equal(t, 2.0, samples[1][7])
}

func TestFileReaderStream(t *testing.T) {
	path := writeCapture(t, tcpPacket(t, "a"), tcpPacket(t, "b"), tcpPacket(t, "c"))

	r, err := NewFileReader(path)
	require.NoError(t, err)
	defer r.Close()

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)

	n := 0
	for features := range ch {
		assert.Len(t, features, 8)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestFileReaderErrors(t *testing.T) {
	_, err := NewFileReader(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("not a capture"), 0o600))
	_, err = NewFileReader(garbage)
	assert.Error(t, err)

	_, err = (&Reader{}).Read()
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	e := NewFeatureExtractor()

	packet := gopacket.NewPacket(tcpPacket(t, "xyz"), layers.LayerTypeEthernet, gopacket.Default)
	features, err := e.Extract(packet)
	require.NoError(t, err)
	assert.Equal(t, 3.0, features[7])

	_, err = e.Extract("not a packet")
	assert.Error(t, err)
}

func TestEncodeTCPFlags(t *testing.T) {
	assert.Equal(t, 0.0, encodeTCPFlags(&layers.TCP{}))
	assert.Equal(t, 63.0, encodeTCPFlags(&layers.TCP{SYN: true, ACK: true, FIN: true, RST: true, PSH: true, URG: true}))
	assert.Equal(t, 12.0, encodeTCPFlags(&layers.TCP{FIN: true, RST: true}))
}
