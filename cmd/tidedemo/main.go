// Command tidedemo exercises the tide write pipeline end to end: it
// accepts a TCP connection, treats it as an already-upgraded WebSocket
// server connection (handshake and HTTP routing are out of scope for tide
// itself, same as upstream's socket/vhost layer), and either sends a fixed
// greeting text frame or streams a file, depending on -file. Nothing is
// read from the peer.
package main

import (
	"flag"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	netHTTP "net/http"

	"github.com/ripley-lyster/libwebsockets/tide"
	"github.com/ripley-lyster/libwebsockets/tide/ext/permsg"
	"github.com/ripley-lyster/libwebsockets/tide/fileprovider"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9527", "address to listen on")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus /metrics on, empty disables")
	file := flag.String("file", "", "path to a file to stream instead of the echo demo")
	deflate := flag.Bool("deflate", false, "attach the permessage-deflate reference extension")
	flag.Parse()

	if *metricsAddr != "" {
		go func() {
			netHTTP.Handle("/metrics", promhttp.Handler())
			tide.Errorf("metrics server exited: %v", netHTTP.ListenAndServe(*metricsAddr, nil))
		}()
	}

	opts := tide.DefaultOptions()
	if err := opts.OnConfigure(); err != nil {
		tide.BugExitln(err)
	}
	opts.OnPrepare()

	reg := prometheus.NewRegistry()
	stats := tide.NewStats(reg)
	pt := tide.NewPt(16 * 1024)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		tide.BugExitln(err)
	}
	tide.Debugf("tidedemo listening on %s", *addr)

	var id int64
	for {
		nc, err := ln.Accept()
		if err != nil {
			tide.Warnf("accept: %v", err)
			continue
		}
		id++
		go serve(id, nc, &opts, stats, pt, *file, *deflate)
	}
}

func serve(id int64, nc net.Conn, opts *tide.Options, stats *tide.Stats, pt *tide.Pt, file string, deflate bool) {
	defer nc.Close()

	transport := tide.NewPlainTransport(nc)
	conn := tide.NewConn(id, tide.ModeWSServer, transport, opts, stats, pt)
	conn.ArmWritable = func() {
		// A real event loop would register nc for write-readiness; the
		// demo just retries inline since it owns this goroutine alone.
	}

	if deflate {
		d, err := permsg.New(6, false)
		if err != nil {
			tide.Errorf("conn %d: permsg.New: %v", id, err)
			return
		}
		conn.SetExtensions(d)
	}

	if file != "" {
		streamFile(conn, file)
		return
	}
	echoGreeting(conn)
}

func echoGreeting(conn *tide.Conn) {
	payload := []byte("hello from tide")
	storage := make([]byte, tide.MaxHeadroom()+len(payload))
	copy(storage[tide.MaxHeadroom():], payload)

	n, err := conn.Write(storage, tide.MaxHeadroom(), len(payload), tide.WriteProtocol{Kind: tide.KindText})
	if err != nil {
		tide.Errorf("write: %v", err)
		return
	}
	tide.Debugf("wrote %d/%d bytes", n, len(payload))
	conn.AfterWritableServiced()
}

func streamFile(conn *tide.Conn, path string) {
	f, size, err := fileprovider.Open(path)
	if err != nil {
		tide.Errorf("open %s: %v", path, err)
		return
	}
	conn.StartFileServe(f, size, size, nil, "", false)

	servBuf := make([]byte, 16*1024)
	_, err = conn.PumpWritable(servBuf, nil, func(c *tide.Conn) int {
		tide.Debugf("conn %d: file serve complete", c.ID)
		return 0
	}, func() bool { return false })
	conn.AfterWritableServiced()
	if err != nil {
		tide.Errorf("pump: %v", err)
	}
}
