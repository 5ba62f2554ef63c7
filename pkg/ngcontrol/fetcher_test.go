package ngcontrol

import (
	"net"
	"testing"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
	"github.com/nectard/nectard/pkg/ngwire"
)

func TestFetcherHandshakeAndDciDelivery(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen server: %v", err)
	}
	defer serverConn.Close()

	bus := pkg.NewBus[pkg.NgScopeCellDci](4)
	sub := bus.Subscribe()
	log := logx.NewLogger("error", "test")

	f, err := newFetcher("127.0.0.1:0", serverConn.LocalAddr().String(), bus, nil, log)
	if err != nil {
		t.Fatalf("newFetcher: %v", err)
	}
	defer f.Close()

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, ngwire.MaxFrameSize)

	f.Tick() // SendInitial -> WaitAuth
	n, clientAddr, err := serverConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("server read handshake: %v", err)
	}
	frame, err := ngwire.Decode(buf[:n])
	if err != nil || frame.Type != ngwire.TypeStart {
		t.Fatalf("expected Start frame, got %+v err=%v", frame, err)
	}

	// Reply with two valid frames to satisfy the auth threshold.
	serverConn.WriteToUDP(ngwire.EncodeStart(), clientAddr)
	f.Tick()
	serverConn.WriteToUDP(ngwire.EncodeStart(), clientAddr)
	f.Tick()
	if f.state != fetcherSuccessfulAuth {
		t.Fatalf("state = %v, want fetcherSuccessfulAuth", f.state)
	}

	f.Tick() // SuccessfulAuth -> ListenForDci
	if f.state != fetcherListenForDci {
		t.Fatalf("state = %v, want fetcherListenForDci", f.state)
	}

	want := pkg.NgScopeCellDci{CellID: 1, TimeStampUs: 42, TTI: 3}
	serverConn.WriteToUDP(ngwire.EncodeCellDci(want), clientAddr)
	f.Tick()

	select {
	case got := <-sub:
		if got != want {
			t.Errorf("delivered = %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dci bus delivery")
	}
}
