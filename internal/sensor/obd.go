package sensor

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// OBDReader talks to an ELM327-compatible OBD-II adapter over a serial
// connection, issuing one AT/PID command per read and parsing the
// single-line hex response. It connects lazily and reconnects on the next
// call after a failure.
type OBDReader struct {
	dev     string
	baud    int
	logger  *zap.Logger
	timeout time.Duration

	mu        sync.Mutex
	port      serial.Port
	reader    *bufio.Reader
	open      bool
	loggedErr bool
}

// NewOBDReader creates a reader against an ELM327 adapter at dev (e.g.
// "/dev/rfcomm0" for Bluetooth OBD dongles, or a USB serial path) and
// baud (commonly 38400 for ELM327). It does not open the port until
// first use.
func NewOBDReader(dev string, baud int, logger *zap.Logger) *OBDReader {
	if baud <= 0 {
		baud = 38400
	}
	return &OBDReader{dev: dev, baud: baud, logger: logger, timeout: DefaultTimeout}
}

func (o *OBDReader) SpeedKPH(ctx context.Context) (speed float64, ok bool) {
	return withTimeout(ctx, o.timeout, func(ctx context.Context) (float64, bool) {
		return o.queryPID(ctx, "010D", 1) // Mode 01 PID 0D: vehicle speed, 1 data byte, km/h
	})
}

func (o *OBDReader) RPM(ctx context.Context) (rpm float64, ok bool) {
	return withTimeout(ctx, o.timeout, func(ctx context.Context) (float64, bool) {
		v, ok := o.queryPID(ctx, "010C", 2) // Mode 01 PID 0C: RPM, 2 data bytes, ((A*256)+B)/4
		if !ok {
			return 0, false
		}
		return v / 4, true
	})
}

func (o *OBDReader) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.open {
		err := o.port.Close()
		o.open = false
		o.port = nil
		o.reader = nil
		return err
	}
	return nil
}

func (o *OBDReader) ensureConnected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.open {
		return true
	}

	port, err := serial.Open(o.dev, &serial.Mode{BaudRate: o.baud})
	if err != nil {
		if !o.loggedErr && o.logger != nil {
			o.logger.Warn("obd: serial open failed", zap.String("device", o.dev), zap.Error(err))
			o.loggedErr = true
		}
		return false
	}

	o.port = port
	o.reader = bufio.NewReader(port)
	o.open = true
	o.loggedErr = false

	// Reset and disable echo so responses contain only the PID reply.
	for _, cmd := range []string{"ATZ", "ATE0", "ATSP0"} {
		_, _ = o.send(cmd)
	}
	return true
}

// queryPID sends an OBD-II PID command and interprets the first byteCount
// hex bytes of the response as a big-endian unsigned integer, returning
// (raw value, ok). Callers scale the raw value per the PID's formula.
func (o *OBDReader) queryPID(ctx context.Context, pid string, byteCount int) (float64, bool) {
	if !o.ensureConnected() {
		return 0, false
	}

	resp, err := o.send(pid)
	if err != nil {
		o.invalidate()
		return 0, false
	}

	bytes := extractResponseBytes(resp, pid)
	if len(bytes) < byteCount {
		return 0, false
	}

	var v uint64
	for i := 0; i < byteCount; i++ {
		v = v<<8 | uint64(bytes[i])
	}
	return float64(v), true
}

func (o *OBDReader) send(cmd string) (string, error) {
	o.mu.Lock()
	port, reader := o.port, o.reader
	o.mu.Unlock()

	if _, err := port.Write([]byte(cmd + "\r")); err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		line, err := reader.ReadString('>')
		sb.WriteString(line)
		if err != nil {
			return sb.String(), err
		}
		break
	}
	return sb.String(), nil
}

func (o *OBDReader) invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.open {
		o.port.Close()
		o.open = false
		o.port = nil
		o.reader = nil
	}
}

// extractResponseBytes pulls the data bytes out of an ELM327 response line
// like "41 0D 32" for a "010D" query (echoing "41" = mode 01 response, "0D"
// = the PID, followed by data bytes), tolerating the trailing ">" prompt
// and whitespace/CR noise ELM327 adapters emit.
func extractResponseBytes(resp, pid string) []byte {
	mode := pid[:2]
	replyHeader := fmt.Sprintf("%02X", mustHex(mode)+0x40)

	fields := strings.Fields(strings.ToUpper(resp))
	for i, f := range fields {
		if f == replyHeader && i+1 < len(fields) {
			var out []byte
			for _, b := range fields[i+2:] {
				if len(b) != 2 {
					break
				}
				n, err := strconv.ParseUint(b, 16, 8)
				if err != nil {
					break
				}
				out = append(out, byte(n))
			}
			return out
		}
	}
	return nil
}

func mustHex(s string) int {
	n, _ := strconv.ParseInt(s, 16, 16)
	return int(n)
}
