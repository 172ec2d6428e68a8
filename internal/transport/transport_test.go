package transport

import (
	"errors"
	"io"
	"net"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassNone},
		{"eof", io.EOF, ErrorClassPeerClosed},
		{"unexpected eof", io.ErrUnexpectedEOF, ErrorClassPeerClosed},
		{"closed", net.ErrClosed, ErrorClassLocalClosed},
		{"wrapped closed", errors.New("wrap: " + net.ErrClosed.Error()), ErrorClassOther},
		{"other", errors.New("boom"), ErrorClassOther},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.err); got != c.want {
				t.Fatalf("Classify(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestStripDualStackPrefix(t *testing.T) {
	if got := stripDualStackPrefix("::ffff:192.0.2.1"); got != "192.0.2.1" {
		t.Fatalf("got %q", got)
	}
	if got := stripDualStackPrefix("192.0.2.1"); got != "192.0.2.1" {
		t.Fatalf("got %q", got)
	}
}

func TestHostOnly(t *testing.T) {
	if got := hostOnly("192.0.2.1:9999"); got != "192.0.2.1" {
		t.Fatalf("got %q", got)
	}
	if got := hostOnly("not-a-host-port"); got != "not-a-host-port" {
		t.Fatalf("got %q", got)
	}
}

func TestDataQueueOrdersWrites(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	sink, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen sink: %v", err)
	}
	defer sink.Close()

	q := newDataQueue(pc, sink.LocalAddr(), "test")
	defer q.close()

	if err := q.enqueue([]byte("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.enqueue([]byte("b")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	buf := make([]byte, 8)
	for _, want := range []string{"a", "b"} {
		n, _, err := sink.ReadFrom(buf)
		if err != nil {
			t.Fatalf("readfrom: %v", err)
		}
		if string(buf[:n]) != want {
			t.Fatalf("got %q want %q", buf[:n], want)
		}
	}
}

func TestCommandQueueClosesUnderlyingConn(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	q := newCommandQueue(server, "test")
	if err := q.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := server.Write([]byte("y")); err == nil {
		t.Fatalf("expected the underlying conn to be closed")
	}
	if err := q.enqueue([]byte("x")); err == nil {
		t.Fatalf("expected enqueue after close to fail")
	}
}
