package emulator

import (
	"net"
	"testing"
	"time"

	"github.com/mfranke/soniclink/internal/driver"
)

// fakeEmulator answers every received frame with a per-device reply echoing
// the message id, the way the device firmware acknowledges a processed frame.
func fakeEmulator(t *testing.T, numDevices int) (port int, stop func()) {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("failed to bind fake emulator: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 65536)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if n < driver.HeaderSize {
				continue
			}
			msgID := buf[0]
			reply := make([]byte, numDevices*driver.InputFrameSize)
			for i := 0; i < numDevices; i++ {
				reply[i*driver.InputFrameSize+1] = msgID
			}
			conn.WriteToUDP(reply, addr)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).Port, func() {
		conn.Close()
		<-done
	}
}

func TestOpenSendReceive(t *testing.T) {
	const numDevices = 2

	port, stop := fakeEmulator(t, numDevices)
	defer stop()

	l := NewLink("127.0.0.1", port, numDevices, 1)
	if err := l.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	if !l.IsOpen() {
		t.Fatal("link should report open")
	}

	tx := driver.NewTxDatagram(numDevices)
	if err := driver.ConfigSilencer(0x42, 4096, 10, tx); err != nil {
		t.Fatalf("ConfigSilencer failed: %v", err)
	}
	if ok, err := l.Send(tx); err != nil || !ok {
		t.Fatalf("Send failed: ok=%v err=%v", ok, err)
	}

	rx := driver.NewRxDatagram(numDevices)
	deadline := time.Now().Add(2 * time.Second)
	for {
		ok, err := l.Receive(rx)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if ok && rx.IsMsgProcessed(0x42) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for emulator reply")
		}
		time.Sleep(time.Millisecond)
	}

	for i := 0; i < numDevices; i++ {
		if got := rx.Message(i).MsgID; got != 0x42 {
			t.Errorf("device %d: message id = 0x%02x, want 0x42", i, got)
		}
	}
}

func TestReceiveBeforeReply(t *testing.T) {
	port, stop := fakeEmulator(t, 1)
	defer stop()

	l := NewLink("127.0.0.1", port, 1, 1)
	if err := l.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	rx := driver.NewRxDatagram(1)
	ok, err := l.Receive(rx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if ok {
		t.Fatal("Receive should report a miss before any reply arrived")
	}
}

func TestClosedLinkFailsClosed(t *testing.T) {
	l := NewLink("127.0.0.1", 50632, 1, 1)

	tx := driver.NewTxDatagram(1)
	if _, err := l.Send(tx); err == nil {
		t.Fatal("Send on a closed link should fail")
	}
	rx := driver.NewRxDatagram(1)
	if _, err := l.Receive(rx); err == nil {
		t.Fatal("Receive on a closed link should fail")
	}
	if l.IsOpen() {
		t.Fatal("unopened link should not report open")
	}
}

func TestOpenBadHostname(t *testing.T) {
	l := NewLink("no-such-host.invalid", 50632, 1, 1)
	if err := l.Open(); err == nil {
		l.Close()
		t.Fatal("Open should fail for an unresolvable hostname")
	}
}

func TestCloseIdempotent(t *testing.T) {
	port, stop := fakeEmulator(t, 1)
	defer stop()

	l := NewLink("127.0.0.1", port, 1, 1)
	if err := l.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if l.IsOpen() {
		t.Fatal("closed link should not report open")
	}
}
