package encoder

import (
	"bufio"
	"net"
	"strconv"
	"strings"
)

// progressListener receives ffmpeg's -progress feed over a local TCP socket
// and reports the encoder's position in the audio timeline. This is what the
// sync clock reads: actual encode progress, not wall-clock time.
type progressListener struct {
	ln     net.Listener
	update func(seconds float64, done bool)
}

// newProgressListener starts listening on an ephemeral localhost port.
// update is called from the accept goroutine for every out_time sample.
func newProgressListener(update func(seconds float64, done bool)) (*progressListener, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	p := &progressListener{ln: ln, update: update}
	go p.serve()
	return p, nil
}

// URL returns the -progress target for the ffmpeg command line.
func (p *progressListener) URL() string {
	return "tcp://" + p.ln.Addr().String()
}

func (p *progressListener) Close() error {
	return p.ln.Close()
}

func (p *progressListener) serve() {
	conn, err := p.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "out_time_us="):
			if us, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_us="), 10, 64); err == nil && us >= 0 {
				p.update(float64(us)/1e6, false)
			}
		case line == "progress=end":
			p.update(0, true)
		}
	}
}
